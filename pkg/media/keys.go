package media

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind is the folder an uploaded image is filed under.
type Kind string

const (
	KindSpeaker Kind = "speakers"
	KindPartner Kind = "partners"
	KindTeam    Kind = "teams"
	KindAbout   Kind = "about"
)

// NewKey names a new object.
//
//	speakers/<unixms>-<rand>.<ext>
//	partners/<rand>.<ext>
//	teams/<rand>.<ext>
//	about/<unixms>-<slug(name)>.<ext>
func NewKey(kind Kind, name, ext string, now time.Time) string {
	ms := now.UnixMilli()
	switch kind {
	case KindSpeaker:
		return fmt.Sprintf("%s/%d-%s.%s", kind, ms, randomToken(), ext)
	case KindAbout:
		slug := Slug(name)
		if slug == "" {
			slug = randomToken()
		}
		return fmt.Sprintf("%s/%d-%s.%s", kind, ms, slug, ext)
	default:
		return fmt.Sprintf("%s/%s.%s", kind, randomToken(), ext)
	}
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Slug lowercases s with Turkish casing, strips diacritics and joins the remaining
// alphanumeric runs with '-'. Casers keep state, so each call builds its own.
func Slug(s string) string {
	lower := cases.Lower(language.Turkish).String(s)
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripMarks, lower)
	if err != nil {
		plain = lower
	}
	plain = strings.ReplaceAll(plain, "ı", "i")

	var b strings.Builder
	dash := false
	for _, r := range plain {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
