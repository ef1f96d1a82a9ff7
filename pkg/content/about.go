package content

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eventdesk/dashboard/pkg/contracts"
	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/validate"
)

// AboutRepo is the about-image persistence. *store.AboutStore satisfies it.
type AboutRepo interface {
	List(ctx context.Context) ([]contracts.AboutImage, error)
	Get(ctx context.Context, id string) (contracts.AboutImage, error)
	InSlot(ctx context.Context, slot int) ([]contracts.AboutImage, error)
	Insert(ctx context.Context, img contracts.AboutImage) error
	Delete(ctx context.Context, id string) error
}

// DefaultAboutSlots is the number of image positions on the about page.
const DefaultAboutSlots = 4

// Slot is one position of the about page. Image is nil for an empty slot.
type Slot struct {
	Index int                   `json:"index"`
	Image *contracts.AboutImage `json:"image"`
}

type aboutInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

// AboutService manages the fixed image slots of the about page.
type AboutService struct {
	repo    AboutRepo
	objects media.Store
	input   *validate.Validator
	slots   int
	now     func() time.Time
	logger  *slog.Logger
}

func NewAboutService(repo AboutRepo, objects media.Store, v *validate.Validator, slots int) *AboutService {
	if slots <= 0 {
		slots = DefaultAboutSlots
	}
	return &AboutService{
		repo:    repo,
		objects: objects,
		input:   v,
		slots:   slots,
		now:     time.Now,
		logger:  slog.Default().With("component", "content", "collection", "about"),
	}
}

// SlotCount is the number of positions on the page.
func (s *AboutService) SlotCount() int { return s.slots }

// Slots returns every slot in order, filled or not. When a slot holds more than one
// row the newest wins.
func (s *AboutService) Slots(ctx context.Context) ([]Slot, error) {
	images, err := s.repo.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]Slot, s.slots)
	for i := range out {
		out[i].Index = i
	}
	for i := range images {
		img := images[i]
		if img.OrderIndex < 0 || img.OrderIndex >= s.slots {
			continue
		}
		if cur := out[img.OrderIndex].Image; cur == nil || img.CreatedAt.After(cur.CreatedAt) {
			out[img.OrderIndex].Image = &img
		}
	}
	return out, nil
}

// Upload stores an image into slot, replacing whatever occupied it.
func (s *AboutService) Upload(ctx context.Context, slot int, name string, up Upload) (contracts.AboutImage, error) {
	if slot < 0 || slot >= s.slots {
		return contracts.AboutImage{}, validate.Field("slot", i18n.InvalidSlot, s.slots-1)
	}
	in := aboutInput{Name: name}
	trim(&in.Name)
	if err := s.input.Struct(in); err != nil {
		return contracts.AboutImage{}, err
	}
	if len(up.Data) == 0 {
		return contracts.AboutImage{}, validate.Field("file", i18n.ImageMissing)
	}

	url, err := uploadImage(ctx, s.objects, media.KindAbout, in.Name, up, s.now())
	if err != nil {
		return contracts.AboutImage{}, err
	}

	previous, err := s.repo.InSlot(ctx, slot)
	if err != nil {
		s.discard(ctx, url)
		return contracts.AboutImage{}, classify(err)
	}
	img := contracts.AboutImage{
		ID:         uuid.NewString(),
		Name:       in.Name,
		ImageURL:   url,
		OrderIndex: slot,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, img); err != nil {
		s.discard(ctx, url)
		return contracts.AboutImage{}, classify(err)
	}
	for _, old := range previous {
		if err := s.remove(ctx, old); err != nil {
			s.logger.WarnContext(ctx, "failed to remove replaced about image", "id", old.ID, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "about image uploaded", "slot", slot, "replaced", len(previous))
	return img, nil
}

// Delete removes the stored object, then the row.
func (s *AboutService) Delete(ctx context.Context, id string) error {
	img, err := s.repo.Get(ctx, id)
	if err != nil {
		return classify(err)
	}
	return classify(s.remove(ctx, img))
}

func (s *AboutService) remove(ctx context.Context, img contracts.AboutImage) error {
	if key, ok := s.objects.KeyFromURL(img.ImageURL); ok {
		if err := s.objects.Remove(ctx, key); err != nil && !errors.Is(err, media.ErrInvalidKey) {
			return err
		}
	}
	return s.repo.Delete(ctx, img.ID)
}

func (s *AboutService) discard(ctx context.Context, url string) {
	if key, ok := s.objects.KeyFromURL(url); ok {
		_ = s.objects.Remove(ctx, key)
	}
}
