package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eventdesk/dashboard/pkg/contracts"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/ordering"
	"github.com/eventdesk/dashboard/pkg/validate"
)

// TeamRepo is the team member persistence. *store.TeamStore satisfies it.
type TeamRepo interface {
	List(ctx context.Context) ([]contracts.TeamMember, error)
	Get(ctx context.Context, id string) (contracts.TeamMember, error)
	Insert(ctx context.Context, m contracts.TeamMember) error
	Update(ctx context.Context, m contracts.TeamMember) error
}

type TeamInput struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Title    string  `json:"title" validate:"required,max=200"`
	Photo    *string `json:"photo" validate:"omitempty,http_url_or_path"`
	Twitter  *string `json:"twitter" validate:"omitempty,max=200"`
	LinkedIn *string `json:"linkedin" validate:"omitempty,max=200"`
	Telegram *string `json:"telegram" validate:"omitempty,max=200"`
}

// TeamPatch changes only the fields that are set. Empty optional fields are cleared.
type TeamPatch struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=200"`
	Title    *string `json:"title" validate:"omitnil,min=1,max=200"`
	Photo    *string `json:"photo" validate:"omitempty,http_url_or_path"`
	Twitter  *string `json:"twitter" validate:"omitempty,max=200"`
	LinkedIn *string `json:"linkedin" validate:"omitempty,max=200"`
	Telegram *string `json:"telegram" validate:"omitempty,max=200"`
}

type TeamService struct {
	repo    TeamRepo
	seq     *ordering.Resequencer
	objects media.Store
	input   *validate.Validator
	now     func() time.Time
	logger  *slog.Logger
}

func NewTeamService(repo TeamRepo, seq *ordering.Resequencer, objects media.Store, v *validate.Validator) *TeamService {
	return &TeamService{
		repo:    repo,
		seq:     seq,
		objects: objects,
		input:   v,
		now:     time.Now,
		logger:  slog.Default().With("component", "content", "collection", "teams"),
	}
}

func (s *TeamService) List(ctx context.Context) ([]contracts.TeamMember, error) {
	out, err := s.repo.List(ctx)
	if out == nil && err == nil {
		out = []contracts.TeamMember{}
	}
	return out, classify(err)
}

func (s *TeamService) Get(ctx context.Context, id string) (contracts.TeamMember, error) {
	m, err := s.repo.Get(ctx, id)
	return m, classify(err)
}

func (s *TeamService) Create(ctx context.Context, in TeamInput) (contracts.TeamMember, error) {
	trim(&in.Name)
	trim(&in.Title)
	in.Photo = optional(in.Photo)
	in.Twitter = optional(in.Twitter)
	in.LinkedIn = optional(in.LinkedIn)
	in.Telegram = optional(in.Telegram)
	if err := s.input.Struct(in); err != nil {
		return contracts.TeamMember{}, err
	}

	m := contracts.TeamMember{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Title:     in.Title,
		Photo:     in.Photo,
		Twitter:   in.Twitter,
		LinkedIn:  in.LinkedIn,
		Telegram:  in.Telegram,
		CreatedAt: s.now().UTC(),
	}
	idx, err := s.seq.Append(ctx, "", func(ctx context.Context, index int) error {
		m.OrderIndex = index
		return s.repo.Insert(ctx, m)
	})
	if err != nil {
		return contracts.TeamMember{}, classify(err)
	}
	m.OrderIndex = idx
	s.logger.InfoContext(ctx, "team member created", "id", m.ID, "order_index", idx)
	return m, nil
}

func (s *TeamService) Update(ctx context.Context, id string, patch TeamPatch) (contracts.TeamMember, error) {
	for _, f := range []*string{patch.Name, patch.Title, patch.Photo, patch.Twitter, patch.LinkedIn, patch.Telegram} {
		trim(f)
	}
	check := patch
	check.Photo = optional(patch.Photo)
	check.Twitter = optional(patch.Twitter)
	check.LinkedIn = optional(patch.LinkedIn)
	check.Telegram = optional(patch.Telegram)
	if err := s.input.Struct(check); err != nil {
		return contracts.TeamMember{}, err
	}

	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return contracts.TeamMember{}, classify(err)
	}
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.Photo != nil {
		m.Photo = optional(patch.Photo)
	}
	if patch.Twitter != nil {
		m.Twitter = optional(patch.Twitter)
	}
	if patch.LinkedIn != nil {
		m.LinkedIn = optional(patch.LinkedIn)
	}
	if patch.Telegram != nil {
		m.Telegram = optional(patch.Telegram)
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return contracts.TeamMember{}, classify(err)
	}
	return m, nil
}

func (s *TeamService) Delete(ctx context.Context, id string) error {
	return classify(s.seq.Remove(ctx, id, ""))
}

// Reorder moves the member to index and returns the updated list.
func (s *TeamService) Reorder(ctx context.Context, id string, index int) ([]contracts.TeamMember, error) {
	if err := checkIndex(index); err != nil {
		return nil, err
	}
	if err := s.seq.Reorder(ctx, id, index, ""); err != nil {
		return nil, classify(err)
	}
	return s.List(ctx)
}

func (s *TeamService) UploadPhoto(ctx context.Context, up Upload) (string, error) {
	return uploadImage(ctx, s.objects, media.KindTeam, "", up, s.now())
}
