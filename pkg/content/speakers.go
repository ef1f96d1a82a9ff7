package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eventdesk/dashboard/pkg/contracts"
	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/ordering"
	"github.com/eventdesk/dashboard/pkg/validate"
)

// SpeakerRepo is the speaker persistence. *store.SpeakerStore satisfies it.
type SpeakerRepo interface {
	List(ctx context.Context) ([]contracts.Speaker, error)
	Get(ctx context.Context, id string) (contracts.Speaker, error)
	Insert(ctx context.Context, sp contracts.Speaker) error
	Update(ctx context.Context, sp contracts.Speaker) error
}

// SpeakerInput is the speaker form. Photo is required on create and kept on
// update when left empty.
type SpeakerInput struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Title    string  `json:"title" validate:"required,max=200"`
	Photo    string  `json:"photo" validate:"omitempty,http_url_or_path"`
	Twitter  *string `json:"twitter" validate:"omitempty,max=200"`
	LinkedIn *string `json:"linkedin" validate:"omitempty,max=200"`
}

func (in *SpeakerInput) normalize() {
	trim(&in.Name)
	trim(&in.Title)
	trim(&in.Photo)
	in.Twitter = optional(in.Twitter)
	in.LinkedIn = optional(in.LinkedIn)
}

type SpeakerService struct {
	repo    SpeakerRepo
	seq     *ordering.Resequencer
	objects media.Store
	input   *validate.Validator
	now     func() time.Time
	logger  *slog.Logger
}

func NewSpeakerService(repo SpeakerRepo, seq *ordering.Resequencer, objects media.Store, v *validate.Validator) *SpeakerService {
	return &SpeakerService{
		repo:    repo,
		seq:     seq,
		objects: objects,
		input:   v,
		now:     time.Now,
		logger:  slog.Default().With("component", "content", "collection", "speakers"),
	}
}

func (s *SpeakerService) List(ctx context.Context) ([]contracts.Speaker, error) {
	out, err := s.repo.List(ctx)
	if out == nil && err == nil {
		out = []contracts.Speaker{}
	}
	return out, classify(err)
}

func (s *SpeakerService) Get(ctx context.Context, id string) (contracts.Speaker, error) {
	sp, err := s.repo.Get(ctx, id)
	return sp, classify(err)
}

// Create appends a speaker at the end of the list.
func (s *SpeakerService) Create(ctx context.Context, in SpeakerInput) (contracts.Speaker, error) {
	in.normalize()
	if err := s.input.Struct(in); err != nil {
		return contracts.Speaker{}, err
	}
	if in.Photo == "" {
		return contracts.Speaker{}, validate.Field("photo", i18n.Required, "photo")
	}

	sp := contracts.Speaker{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Title:     in.Title,
		Photo:     in.Photo,
		Twitter:   in.Twitter,
		LinkedIn:  in.LinkedIn,
		CreatedAt: s.now().UTC(),
	}
	idx, err := s.seq.Append(ctx, "", func(ctx context.Context, index int) error {
		sp.OrderIndex = index
		return s.repo.Insert(ctx, sp)
	})
	if err != nil {
		return contracts.Speaker{}, classify(err)
	}
	sp.OrderIndex = idx
	s.logger.InfoContext(ctx, "speaker created", "id", sp.ID, "order_index", idx)
	return sp, nil
}

func (s *SpeakerService) Update(ctx context.Context, id string, in SpeakerInput) (contracts.Speaker, error) {
	in.normalize()
	if err := s.input.Struct(in); err != nil {
		return contracts.Speaker{}, err
	}
	sp, err := s.repo.Get(ctx, id)
	if err != nil {
		return contracts.Speaker{}, classify(err)
	}
	sp.Name = in.Name
	sp.Title = in.Title
	if in.Photo != "" {
		sp.Photo = in.Photo
	}
	sp.Twitter = in.Twitter
	sp.LinkedIn = in.LinkedIn
	if err := s.repo.Update(ctx, sp); err != nil {
		return contracts.Speaker{}, classify(err)
	}
	return sp, nil
}

// Delete soft-deletes the speaker and closes the gap it leaves.
func (s *SpeakerService) Delete(ctx context.Context, id string) error {
	return classify(s.seq.Remove(ctx, id, ""))
}

// Reorder moves the speaker to index and returns the updated list.
func (s *SpeakerService) Reorder(ctx context.Context, id string, index int) ([]contracts.Speaker, error) {
	if err := checkIndex(index); err != nil {
		return nil, err
	}
	if err := s.seq.Reorder(ctx, id, index, ""); err != nil {
		return nil, classify(err)
	}
	return s.List(ctx)
}

// UploadPhoto stores a speaker photo and returns its public URL.
func (s *SpeakerService) UploadPhoto(ctx context.Context, up Upload) (string, error) {
	return uploadImage(ctx, s.objects, media.KindSpeaker, "", up, s.now())
}
