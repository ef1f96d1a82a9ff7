// Package i18n holds the user-visible messages of the API in Turkish and English.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a message.
type Key string

const (
	Required          Key = "field.required"
	TooLong           Key = "field.too_long"
	InvalidURL        Key = "field.invalid_url"
	InvalidEmail      Key = "field.invalid_email"
	InvalidPartner    Key = "field.invalid_partner_type"
	InvalidSlot       Key = "field.invalid_slot"
	InvalidIndex      Key = "field.invalid_index"
	PasswordTooShort  Key = "password.too_short"
	PasswordLower     Key = "password.lowercase"
	PasswordUpper     Key = "password.uppercase"
	PasswordDigit     Key = "password.digit"
	PasswordMismatch  Key = "password.mismatch"
	ImageTooLarge     Key = "image.too_large"
	ImageNotImage     Key = "image.not_image"
	ImageMissing      Key = "image.missing"
	NotFound          Key = "error.not_found"
	EmailTaken        Key = "error.email_taken"
	Conflict          Key = "error.conflict"
	ReorderFailed     Key = "error.reorder_failed"
	IndexOutOfRange   Key = "error.index_out_of_range"
	InvalidBody       Key = "error.invalid_body"
	Unauthorized      Key = "error.unauthorized"
	BadCredentials    Key = "error.bad_credentials"
	SignupDisabled    Key = "error.signup_disabled"
	RateLimited       Key = "error.rate_limited"
	InProgress        Key = "error.in_progress"
	Internal          Key = "error.internal"
	LoggedIn          Key = "ok.logged_in"
	LoggedOut         Key = "ok.logged_out"
	Registered        Key = "ok.registered"
	Deleted           Key = "ok.deleted"
	ValidationSummary Key = "error.validation"
)

var (
	Turkish = language.Turkish
	English = language.English
)

var messages = map[Key][2]string{
	Required:          {"%s alanı zorunludur", "%s is required"},
	TooLong:           {"%s en fazla %d karakter olabilir", "%s must be at most %d characters"},
	InvalidURL:        {"%s geçerli bir URL olmalıdır", "%s must be a valid URL"},
	InvalidEmail:      {"Lütfen geçerli bir e-posta adresi girin", "Please enter a valid email address"},
	InvalidPartner:    {"Geçersiz sponsor türü: %s", "Unknown partner type: %s"},
	InvalidSlot:       {"Resim sırası 0 ile %d arasında olmalıdır", "Slot must be between 0 and %d"},
	InvalidIndex:      {"Sıralama indeksi negatif olamaz", "Order index must not be negative"},
	PasswordTooShort:  {"Şifre en az 8 karakter olmalıdır", "Password must be at least 8 characters long"},
	PasswordLower:     {"Şifre en az bir küçük harf içermelidir", "Password must contain at least one lowercase letter"},
	PasswordUpper:     {"Şifre en az bir büyük harf içermelidir", "Password must contain at least one uppercase letter"},
	PasswordDigit:     {"Şifre en az bir rakam içermelidir", "Password must contain at least one number"},
	PasswordMismatch:  {"Şifreler eşleşmiyor", "Passwords do not match"},
	ImageTooLarge:     {"Dosya boyutu 5MB'dan büyük olamaz", "File size cannot exceed 5MB"},
	ImageNotImage:     {"Sadece resim dosyaları yüklenebilir", "Only image files can be uploaded"},
	ImageMissing:      {"Lütfen resim adı ve resim seçiniz", "Please provide an image name and file"},
	NotFound:          {"Kayıt bulunamadı", "Record not found"},
	EmailTaken:        {"Bu e-posta adresi zaten kayıtlı", "This email is already registered"},
	Conflict:          {"Kayıt başka bir işlemle çakıştı", "The record conflicts with another change"},
	ReorderFailed:     {"Sıralama güncellenemedi: %s kaydı güncellenirken hata oluştu", "Reordering failed while updating %s"},
	IndexOutOfRange:   {"Sıralama indeksi geçersiz", "Order index is out of range"},
	InvalidBody:       {"İstek gövdesi okunamadı", "Request body could not be parsed"},
	Unauthorized:      {"Bu işlem için giriş yapmalısınız", "You must be logged in"},
	BadCredentials:    {"E-posta veya şifre hatalı", "Invalid email or password"},
	SignupDisabled:    {"Yeni kayıtlar kapalı", "Registration is disabled"},
	RateLimited:       {"Çok fazla istek gönderildi, lütfen biraz bekleyin", "Too many requests, please slow down"},
	InProgress:        {"Aynı istek hâlâ işleniyor", "The same request is still being processed"},
	Internal:          {"Beklenmeyen bir hata oluştu", "An unexpected error occurred"},
	LoggedIn:          {"Giriş başarılı", "Successfully logged in"},
	LoggedOut:         {"Çıkış işlemi başarılı bir şekilde gerçekleştirildi.", "Successfully logged out."},
	Registered:        {"Kayıt başarılı", "Registration successful"},
	Deleted:           {"Kayıt başarıyla silindi", "Deleted successfully"},
	ValidationSummary: {"Lütfen formdaki hataları düzeltin", "Please fix the errors in the form"},
}

// Catalog resolves messages for a request's preferred language.
type Catalog struct {
	cat     *catalog.Builder
	matcher language.Matcher
	def     language.Tag
}

// New builds the catalog. defaultLocale is used when Accept-Language matches nothing;
// unknown values fall back to Turkish.
func New(defaultLocale string) *Catalog {
	def := Turkish
	if tag, err := language.Parse(defaultLocale); err == nil && tag == English {
		def = English
	}

	b := catalog.NewBuilder(catalog.Fallback(def))
	for key, pair := range messages {
		_ = b.SetString(Turkish, string(key), pair[0])
		_ = b.SetString(English, string(key), pair[1])
	}

	supported := []language.Tag{def}
	if def == Turkish {
		supported = append(supported, English)
	} else {
		supported = append(supported, Turkish)
	}
	return &Catalog{cat: b, matcher: language.NewMatcher(supported), def: def}
}

// Default returns the fallback language.
func (c *Catalog) Default() language.Tag { return c.def }

// Match picks the best supported language for an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return c.def
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.def
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.def
	}
	if idx == 0 {
		return c.def
	}
	if c.def == Turkish {
		return English
	}
	return Turkish
}

// Printer returns a printer bound to tag.
func (c *Catalog) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(c.cat))
}

// T formats key in tag.
func (c *Catalog) T(tag language.Tag, key Key, args ...any) string {
	return c.Printer(tag).Sprintf(string(key), args...)
}
