// Package content implements the dashboard use cases for speakers, partners, team
// members, FAQ entries and about-page images.
//
// Every input is validated before the first store call. Positions of speakers,
// partners and team members are owned by an ordering.Resequencer per collection.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/ordering"
	"github.com/eventdesk/dashboard/pkg/store"
	"github.com/eventdesk/dashboard/pkg/validate"
)

var (
	// ErrNotFound is returned for missing or soft-deleted records.
	ErrNotFound = errors.New("content: not found")
	// ErrConflict is returned when a write collides with existing data.
	ErrConflict = errors.New("content: conflict")
)

// Upload is an image received from the dashboard.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// classify maps store and ordering sentinels onto the package errors. Shift
// errors pass through untouched so callers can report the partial state.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var shift *ordering.ShiftError
	if errors.As(err, &shift) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ordering.ErrItemNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// optional turns an empty string into nil.
func optional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func checkIndex(index int) error {
	if index < 0 {
		return validate.Field("order_index", i18n.InvalidIndex)
	}
	return nil
}

func uploadImage(ctx context.Context, objects media.Store, kind media.Kind, name string, up Upload, now time.Time) (string, error) {
	img, err := media.ValidateImage(up.Data, up.Filename, up.ContentType)
	if err != nil {
		return "", err
	}
	url, err := objects.Upload(ctx, media.NewKey(kind, name, img.Ext, now), img.Data, img.ContentType)
	if err != nil {
		return "", fmt.Errorf("upload %s image: %w", kind, err)
	}
	return url, nil
}

// Options configures NewServices.
type Options struct {
	Mode       ordering.Mode
	Locker     ordering.Locker
	AboutSlots int
	Logger     *slog.Logger
}

// Services bundles every use case of the dashboard.
type Services struct {
	Speakers *SpeakerService
	Partners *PartnerService
	Teams    *TeamService
	FAQ      *FAQService
	About    *AboutService
	Repair   *Repairer
}

// NewServices wires the SQL stores, one re-sequencer per ordered collection and the
// object store. Re-sequencers share opts.Locker, so a Redis locker serializes moves
// across server instances.
func NewServices(db *sql.DB, objects media.Store, v *validate.Validator, opts Options) *Services {
	if opts.Locker == nil {
		opts.Locker = ordering.NewLocalLocker()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seqOpts := []ordering.Option{
		ordering.WithMode(opts.Mode),
		ordering.WithLocker(opts.Locker),
		ordering.WithLogger(logger),
	}

	speakers := store.NewSpeakerStore(db)
	partners := store.NewPartnerStore(db)
	teams := store.NewTeamStore(db)

	speakerSeq := ordering.New("speakers", speakers.Ordering(), seqOpts...)
	partnerSeq := ordering.New("partners", partners.Ordering(), seqOpts...)
	teamSeq := ordering.New("teams", teams.Ordering(), seqOpts...)

	repair := NewRepairer(logger)
	repair.Register(speakerSeq, speakers.Ordering().Groups)
	repair.Register(partnerSeq, partners.Ordering().Groups)
	repair.Register(teamSeq, teams.Ordering().Groups)

	return &Services{
		Speakers: NewSpeakerService(speakers, speakerSeq, objects, v),
		Partners: NewPartnerService(partners, partnerSeq, objects, v),
		Teams:    NewTeamService(teams, teamSeq, objects, v),
		FAQ:      NewFAQService(store.NewFAQStore(db), v),
		About:    NewAboutService(store.NewAboutStore(db), objects, v, opts.AboutSlots),
		Repair:   repair,
	}
}
