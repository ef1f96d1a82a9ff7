// Package validate checks request inputs with go-playground/validator and reports
// failures as localizable field errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/eventdesk/dashboard/pkg/contracts"
	"github.com/eventdesk/dashboard/pkg/i18n"
)

// FieldError is one rejected field.
type FieldError struct {
	Field string   `json:"field"`
	Key   i18n.Key `json:"-"`
	Args  []any    `json:"-"`
}

// Error collects every rejected field of one input.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+string(f.Key))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Field builds a single-field error.
func Field(field string, key i18n.Key, args ...any) *Error {
	return &Error{Fields: []FieldError{{Field: field, Key: key, Args: args}}}
}

// Validator wraps a configured validator.Validate. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New registers the custom tags used by the dashboard inputs:
// partner_type, http_url_or_path and password.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("partner_type", func(fl validator.FieldLevel) bool {
		return contracts.PartnerType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("http_url_or_path", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return len(PasswordProblems(fl.Field().String())) == 0
	})
	return &Validator{v: v}
}

// Struct validates s and converts failures to *Error.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &Error{}
	for _, fe := range ves {
		out.Fields = append(out.Fields, translate(fe)...)
	}
	return out
}

func translate(fe validator.FieldError) []FieldError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return []FieldError{{Field: field, Key: i18n.Required, Args: []any{field}}}
	case "max":
		n, _ := strconv.Atoi(fe.Param())
		return []FieldError{{Field: field, Key: i18n.TooLong, Args: []any{field, n}}}
	case "url", "http_url", "http_url_or_path":
		return []FieldError{{Field: field, Key: i18n.InvalidURL, Args: []any{field}}}
	case "email":
		return []FieldError{{Field: field, Key: i18n.InvalidEmail}}
	case "partner_type":
		return []FieldError{{Field: field, Key: i18n.InvalidPartner, Args: []any{fmt.Sprint(fe.Value())}}}
	case "gte", "min":
		if fe.Kind() == reflect.String {
			return []FieldError{{Field: field, Key: i18n.Required, Args: []any{field}}}
		}
		return []FieldError{{Field: field, Key: i18n.InvalidIndex}}
	case "eqfield":
		return []FieldError{{Field: field, Key: i18n.PasswordMismatch}}
	case "password":
		var out []FieldError
		for _, key := range PasswordProblems(fmt.Sprint(fe.Value())) {
			out = append(out, FieldError{Field: field, Key: key})
		}
		return out
	default:
		return []FieldError{{Field: field, Key: i18n.InvalidBody}}
	}
}

// PasswordProblems lists every unmet password rule: at least 8 characters with a
// lowercase letter, an uppercase letter and a digit.
func PasswordProblems(pw string) []i18n.Key {
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	var out []i18n.Key
	if len([]rune(pw)) < 8 {
		out = append(out, i18n.PasswordTooShort)
	}
	if !lower {
		out = append(out, i18n.PasswordLower)
	}
	if !upper {
		out = append(out, i18n.PasswordUpper)
	}
	if !digit {
		out = append(out, i18n.PasswordDigit)
	}
	return out
}
