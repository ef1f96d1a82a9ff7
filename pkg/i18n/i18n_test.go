package i18n

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalog_DefaultTurkish(t *testing.T) {
	c := New("")
	assert.Equal(t, Turkish, c.Default())
	assert.Equal(t, "Dosya boyutu 5MB'dan büyük olamaz", c.T(c.Match(""), ImageTooLarge))
	assert.Equal(t, "İsim alanı zorunludur", c.T(Turkish, Required, "İsim"))
}

func TestCatalog_MatchAcceptLanguage(t *testing.T) {
	c := New("tr")

	assert.Equal(t, English, c.Match("en-US,en;q=0.9"))
	assert.Equal(t, Turkish, c.Match("tr-TR"))
	assert.Equal(t, Turkish, c.Match("de-DE"))
	assert.Equal(t, Turkish, c.Match("%%%garbage"))

	assert.Equal(t, "Only image files can be uploaded", c.T(c.Match("en"), ImageNotImage))
}

func TestCatalog_EnglishDefault(t *testing.T) {
	c := New("en")
	assert.Equal(t, English, c.Default())
	assert.Equal(t, Turkish, c.Match("tr"))
	assert.Equal(t, "title must be at most 200 characters", c.T(English, TooLong, "title", 200))
}

func TestCatalog_EveryKeyTranslated(t *testing.T) {
	c := New("tr")
	for key := range messages {
		for _, tag := range []string{"tr", "en"} {
			got := c.T(c.Match(tag), key, "x", 1)
			assert.False(t, strings.HasPrefix(got, string(key)), "%s missing in %s", key, tag)
		}
	}
}
