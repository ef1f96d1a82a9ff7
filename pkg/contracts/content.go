package contracts

import "time"

// Speaker is a conference speaker shown on the public site.
type Speaker struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	Photo      string     `json:"photo"`
	Twitter    *string    `json:"twitter"`
	LinkedIn   *string    `json:"linkedin"`
	OrderIndex int        `json:"order_index"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at"`
}

// PartnerType is the sponsorship tier. Ordering of partners is independent per tier.
type PartnerType string

const (
	PartnerMain    PartnerType = "main"
	PartnerDiamond PartnerType = "diamond"
	PartnerGold    PartnerType = "gold"
	PartnerSilver  PartnerType = "silver"
)

// PartnerTypes lists the tiers in display order.
var PartnerTypes = []PartnerType{PartnerMain, PartnerDiamond, PartnerGold, PartnerSilver}

// Valid reports whether t is a known tier.
func (t PartnerType) Valid() bool {
	for _, known := range PartnerTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Rank returns the display position of the tier, or len(PartnerTypes) for unknown tiers.
func (t PartnerType) Rank() int {
	for i, known := range PartnerTypes {
		if t == known {
			return i
		}
	}
	return len(PartnerTypes)
}

// Partner is a sponsor. Its Type doubles as the ordering group.
type Partner struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Logo       *string     `json:"logo"`
	Link       *string     `json:"link"`
	Type       PartnerType `json:"type"`
	OrderIndex int         `json:"order_index"`
	CreatedAt  time.Time   `json:"created_at"`
	DeletedAt  *time.Time  `json:"deleted_at"`
}

// TeamMember is an organizer shown on the team page.
type TeamMember struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	Photo      *string    `json:"photo"`
	Twitter    *string    `json:"twitter"`
	LinkedIn   *string    `json:"linkedin"`
	Telegram   *string    `json:"telegram"`
	OrderIndex int        `json:"order_index"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at"`
}

// FAQ is a question/answer pair. FAQs are ordered by creation time and hard-deleted.
type FAQ struct {
	ID           string     `json:"id"`
	QuestionText string     `json:"question_text"`
	AnswerText   string     `json:"answer_text"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// AboutImage occupies one fixed slot on the about page.
// OrderIndex is the slot number, not a re-sequenced position.
type AboutImage struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// Account is a dashboard operator.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}
