package content

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eventdesk/dashboard/pkg/contracts"
	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/ordering"
	"github.com/eventdesk/dashboard/pkg/validate"
)

// PartnerRepo is the partner persistence. *store.PartnerStore satisfies it.
type PartnerRepo interface {
	List(ctx context.Context, typ contracts.PartnerType) ([]contracts.Partner, error)
	Get(ctx context.Context, id string) (contracts.Partner, error)
	Insert(ctx context.Context, p contracts.Partner) error
	Update(ctx context.Context, p contracts.Partner) error
}

type PartnerInput struct {
	Title string  `json:"title" validate:"required,max=200"`
	Type  string  `json:"type" validate:"required,partner_type"`
	Logo  *string `json:"logo" validate:"omitempty,http_url_or_path"`
	Link  *string `json:"link" validate:"omitempty,url"`
}

// PartnerPatch changes only the fields that are set. An empty Logo or Link clears it.
type PartnerPatch struct {
	Title *string `json:"title" validate:"omitnil,min=1,max=200"`
	Type  *string `json:"type" validate:"omitnil,partner_type"`
	Logo  *string `json:"logo" validate:"omitempty,http_url_or_path"`
	Link  *string `json:"link" validate:"omitempty,url"`
}

type PartnerService struct {
	repo    PartnerRepo
	seq     *ordering.Resequencer
	objects media.Store
	input   *validate.Validator
	now     func() time.Time
	logger  *slog.Logger
}

func NewPartnerService(repo PartnerRepo, seq *ordering.Resequencer, objects media.Store, v *validate.Validator) *PartnerService {
	return &PartnerService{
		repo:    repo,
		seq:     seq,
		objects: objects,
		input:   v,
		now:     time.Now,
		logger:  slog.Default().With("component", "content", "collection", "partners"),
	}
}

func parseType(raw string) (contracts.PartnerType, error) {
	t := contracts.PartnerType(raw)
	if !t.Valid() {
		return "", validate.Field("type", i18n.InvalidPartner, raw)
	}
	return t, nil
}

// List returns partners of one tier, or of every tier in display order when typ is empty.
func (s *PartnerService) List(ctx context.Context, typ string) ([]contracts.Partner, error) {
	var filter contracts.PartnerType
	if typ != "" {
		t, err := parseType(typ)
		if err != nil {
			return nil, err
		}
		filter = t
	}
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, classify(err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Type.Rank() < out[j].Type.Rank() })
	if out == nil {
		out = []contracts.Partner{}
	}
	return out, nil
}

func (s *PartnerService) Get(ctx context.Context, id string) (contracts.Partner, error) {
	p, err := s.repo.Get(ctx, id)
	return p, classify(err)
}

// Create appends the partner at the end of its tier.
func (s *PartnerService) Create(ctx context.Context, in PartnerInput) (contracts.Partner, error) {
	trim(&in.Title)
	in.Logo = optional(in.Logo)
	in.Link = optional(in.Link)
	if err := s.input.Struct(in); err != nil {
		return contracts.Partner{}, err
	}

	p := contracts.Partner{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Logo:      in.Logo,
		Link:      in.Link,
		Type:      contracts.PartnerType(in.Type),
		CreatedAt: s.now().UTC(),
	}
	idx, err := s.seq.Append(ctx, string(p.Type), func(ctx context.Context, index int) error {
		p.OrderIndex = index
		return s.repo.Insert(ctx, p)
	})
	if err != nil {
		return contracts.Partner{}, classify(err)
	}
	p.OrderIndex = idx
	s.logger.InfoContext(ctx, "partner created", "id", p.ID, "type", p.Type, "order_index", idx)
	return p, nil
}

// Update applies patch. A tier change moves the partner to the end of the new tier
// and closes the gap in the old one.
func (s *PartnerService) Update(ctx context.Context, id string, patch PartnerPatch) (contracts.Partner, error) {
	trim(patch.Title)
	trim(patch.Logo)
	trim(patch.Link)
	check := patch
	check.Logo = optional(patch.Logo)
	check.Link = optional(patch.Link)
	if err := s.input.Struct(check); err != nil {
		return contracts.Partner{}, err
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return contracts.Partner{}, classify(err)
	}

	// Move tiers before writing fields; a failed transfer must leave the row as it was.
	if patch.Type != nil && contracts.PartnerType(*patch.Type) != p.Type {
		to := contracts.PartnerType(*patch.Type)
		idx, err := s.seq.Transfer(ctx, id, string(p.Type), string(to))
		if err != nil {
			return contracts.Partner{}, classify(err)
		}
		s.logger.InfoContext(ctx, "partner moved to another tier", "id", id, "from", p.Type, "to", to, "order_index", idx)
		p.Type = to
		p.OrderIndex = idx
	}

	if patch.Title == nil && patch.Logo == nil && patch.Link == nil {
		return p, nil
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Logo != nil {
		p.Logo = optional(patch.Logo)
	}
	if patch.Link != nil {
		p.Link = optional(patch.Link)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return contracts.Partner{}, classify(err)
	}
	return p, nil
}

// Delete soft-deletes the partner and closes the gap in its tier.
func (s *PartnerService) Delete(ctx context.Context, id string) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return classify(err)
	}
	return classify(s.seq.Remove(ctx, id, string(p.Type)))
}

// Reorder moves the partner to index within typ. An empty typ means the partner's
// current tier. It returns the updated tier.
func (s *PartnerService) Reorder(ctx context.Context, id string, index int, typ string) ([]contracts.Partner, error) {
	if err := checkIndex(index); err != nil {
		return nil, err
	}
	group := contracts.PartnerType(typ)
	if typ == "" {
		p, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, classify(err)
		}
		group = p.Type
	} else if _, err := parseType(typ); err != nil {
		return nil, err
	}

	if err := s.seq.Reorder(ctx, id, index, string(group)); err != nil {
		return nil, classify(err)
	}
	return s.List(ctx, string(group))
}

// UploadLogo stores a partner logo and returns its public URL.
func (s *PartnerService) UploadLogo(ctx context.Context, up Upload) (string, error) {
	return uploadImage(ctx, s.objects, media.KindPartner, "", up, s.now())
}
