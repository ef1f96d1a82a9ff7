// Package seed loads a YAML content fixture into an empty dashboard.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/eventdesk/dashboard/pkg/auth"
	"github.com/eventdesk/dashboard/pkg/content"
)

//go:embed fixture.schema.json
var fixtureSchema string

const schemaURL = "https://eventdesk.app/schemas/fixture.schema.json"

// Fixture is the seed document. Items are created in file order, so the order of
// each list becomes its display order.
type Fixture struct {
	Speakers []content.SpeakerInput `json:"speakers"`
	Partners []content.PartnerInput `json:"partners"`
	Team     []content.TeamInput    `json:"team"`
	FAQ      []content.FAQInput     `json:"faq"`
	Admins   []auth.SignupInput     `json:"admins"`
}

// Report counts what Apply created. Skipped lists collections that already had content.
type Report struct {
	Speakers int      `json:"speakers"`
	Partners int      `json:"partners"`
	Team     int      `json:"team"`
	FAQ      int      `json:"faq"`
	Admins   int      `json:"admins"`
	Skipped  []string `json:"skipped,omitempty"`
}

func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(fixtureSchema)); err != nil {
		return nil, fmt.Errorf("seed schema load failed: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("seed schema compile failed: %w", err)
	}
	return compiled, nil
}

// Parse validates data against the fixture schema and decodes it.
func Parse(data []byte) (*Fixture, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}

	// The input types carry json tags, so the validated document is decoded through JSON.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	var fx Fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &fx, nil
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixture, error) {
	//nolint:gosec // G304: path comes from the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Seeder applies fixtures. Auth may be nil when the fixture has no admins.
type Seeder struct {
	Content *content.Services
	Auth    *auth.Service
	Logger  *slog.Logger
}

// Apply creates the fixture's content. A collection that already holds items is left
// alone so running the seed twice does not duplicate anything. Existing admin emails
// are skipped the same way.
func (s *Seeder) Apply(ctx context.Context, fx *Fixture) (Report, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "seed")
	var rep Report

	if len(fx.Speakers) > 0 {
		existing, err := s.Content.Speakers.List(ctx)
		if err != nil {
			return rep, err
		}
		if len(existing) > 0 {
			rep.Skipped = append(rep.Skipped, "speakers")
		} else {
			for i, in := range fx.Speakers {
				if _, err := s.Content.Speakers.Create(ctx, in); err != nil {
					return rep, fmt.Errorf("speaker %d: %w", i, err)
				}
				rep.Speakers++
			}
		}
	}

	if len(fx.Partners) > 0 {
		existing, err := s.Content.Partners.List(ctx, "")
		if err != nil {
			return rep, err
		}
		if len(existing) > 0 {
			rep.Skipped = append(rep.Skipped, "partners")
		} else {
			for i, in := range fx.Partners {
				if _, err := s.Content.Partners.Create(ctx, in); err != nil {
					return rep, fmt.Errorf("partner %d: %w", i, err)
				}
				rep.Partners++
			}
		}
	}

	if len(fx.Team) > 0 {
		existing, err := s.Content.Teams.List(ctx)
		if err != nil {
			return rep, err
		}
		if len(existing) > 0 {
			rep.Skipped = append(rep.Skipped, "team")
		} else {
			for i, in := range fx.Team {
				if _, err := s.Content.Teams.Create(ctx, in); err != nil {
					return rep, fmt.Errorf("team member %d: %w", i, err)
				}
				rep.Team++
			}
		}
	}

	if len(fx.FAQ) > 0 {
		existing, err := s.Content.FAQ.List(ctx)
		if err != nil {
			return rep, err
		}
		if len(existing) > 0 {
			rep.Skipped = append(rep.Skipped, "faq")
		} else {
			for i, in := range fx.FAQ {
				if _, err := s.Content.FAQ.Create(ctx, in); err != nil {
					return rep, fmt.Errorf("faq %d: %w", i, err)
				}
				rep.FAQ++
			}
		}
	}

	for _, in := range fx.Admins {
		if s.Auth == nil {
			return rep, errors.New("seed: fixture has admins but no auth service")
		}
		in.ConfirmPassword = in.Password
		if _, err := s.Auth.Signup(ctx, in); err != nil {
			if errors.Is(err, auth.ErrEmailTaken) {
				continue
			}
			return rep, fmt.Errorf("admin %s: %w", in.Email, err)
		}
		rep.Admins++
	}

	logger.InfoContext(ctx, "fixture applied",
		"speakers", rep.Speakers, "partners", rep.Partners, "team", rep.Team,
		"faq", rep.FAQ, "admins", rep.Admins, "skipped", rep.Skipped)
	return rep, nil
}
