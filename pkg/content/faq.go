package content

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eventdesk/dashboard/pkg/contracts"
	"github.com/eventdesk/dashboard/pkg/validate"
)

// FAQRepo is the FAQ persistence. *store.FAQStore satisfies it.
type FAQRepo interface {
	List(ctx context.Context) ([]contracts.FAQ, error)
	Get(ctx context.Context, id string) (contracts.FAQ, error)
	Insert(ctx context.Context, f contracts.FAQ) error
	Update(ctx context.Context, f contracts.FAQ) error
	Delete(ctx context.Context, id string) error
}

type FAQInput struct {
	QuestionText string `json:"question_text" validate:"required,max=1000"`
	AnswerText   string `json:"answer_text" validate:"required,max=10000"`
}

// FAQService manages FAQ entries. They are listed oldest first and deleted for good.
type FAQService struct {
	repo  FAQRepo
	input *validate.Validator
	now   func() time.Time
}

func NewFAQService(repo FAQRepo, v *validate.Validator) *FAQService {
	return &FAQService{repo: repo, input: v, now: time.Now}
}

func (s *FAQService) List(ctx context.Context) ([]contracts.FAQ, error) {
	out, err := s.repo.List(ctx)
	if out == nil && err == nil {
		out = []contracts.FAQ{}
	}
	return out, classify(err)
}

func (s *FAQService) Create(ctx context.Context, in FAQInput) (contracts.FAQ, error) {
	trim(&in.QuestionText)
	trim(&in.AnswerText)
	if err := s.input.Struct(in); err != nil {
		return contracts.FAQ{}, err
	}
	f := contracts.FAQ{
		ID:           uuid.NewString(),
		QuestionText: in.QuestionText,
		AnswerText:   in.AnswerText,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, f); err != nil {
		return contracts.FAQ{}, classify(err)
	}
	return f, nil
}

// Update replaces both texts and stamps updated_at.
func (s *FAQService) Update(ctx context.Context, id string, in FAQInput) (contracts.FAQ, error) {
	trim(&in.QuestionText)
	trim(&in.AnswerText)
	if err := s.input.Struct(in); err != nil {
		return contracts.FAQ{}, err
	}
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return contracts.FAQ{}, classify(err)
	}
	now := s.now().UTC()
	f.QuestionText = in.QuestionText
	f.AnswerText = in.AnswerText
	f.UpdatedAt = &now
	if err := s.repo.Update(ctx, f); err != nil {
		return contracts.FAQ{}, classify(err)
	}
	return f, nil
}

func (s *FAQService) Delete(ctx context.Context, id string) error {
	return classify(s.repo.Delete(ctx, id))
}
