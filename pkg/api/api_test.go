package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventdesk/dashboard/pkg/auth"
	"github.com/eventdesk/dashboard/pkg/content"
	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/ordering"
	"github.com/eventdesk/dashboard/pkg/ratelimit"
	"github.com/eventdesk/dashboard/pkg/store"
	"github.com/eventdesk/dashboard/pkg/validate"

	_ "modernc.org/sqlite"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	db      *sql.DB
	token   string
}

func newTestAPI(t *testing.T, mutate func(*Deps)) *testAPI {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Skipf("sqlite driver not available: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))

	objects, err := media.NewFileStore(t.TempDir(), "/media")
	require.NoError(t, err)
	keys, err := auth.NewKeySet("")
	require.NoError(t, err)

	v := validate.New()
	deps := Deps{
		DB:      db,
		Content: content.NewServices(db, objects, v, content.Options{Mode: ordering.ModeAtomic, AboutSlots: 4}),
		Auth: auth.NewService(store.NewAccountStore(db), keys, v, auth.Options{
			AllowSignup: true,
			TokenTTL:    time.Hour,
			BcryptCost:  bcrypt.MinCost,
		}),
		Catalog:     i18n.New("tr"),
		Media:       objects,
		Logins:      ratelimit.NewMemoryStore(),
		Idempotency: NewMemoryIdempotencyStore(time.Hour),
		CORSOrigins: []string{"http://localhost:3000"},
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testAPI{t: t, handler: NewServer(deps).Handler(), db: db}
}

func (a *testAPI) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) upload(path, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if data != nil {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(a.t, err)
		_, err = fw.Write(data)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.token)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// login registers an admin and keeps its token for later requests.
func (a *testAPI) login() {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "admin@example.com", "password": "Secret123", "confirm_password": "Secret123",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@example.com", "password": "Secret123"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(a.t, sess.Token)
	a.token = sess.Token
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type speakerJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OrderIndex int    `json:"order_index"`
}

func TestHealthAndReadiness(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = a.do(http.MethodGet, "/readiness", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, a.db.Close())
	rec = a.do(http.MethodGet, "/readiness", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuth_RequiredForAPI(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(http.MethodGet, "/api/speakers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	p := decode[ProblemDetail](t, rec)
	assert.Equal(t, "Bu işlem için giriş yapmalısınız", p.Detail)

	a.token = "not-a-jwt"
	rec = a.do(http.MethodGet, "/api/speakers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_SignupLoginLogout(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()

	rec := a.do(http.MethodGet, "/api/speakers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = a.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "admin@example.com", "password": "Secret123", "confirm_password": "Secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Çıkış işlemi başarılı bir şekilde gerçekleştirildi.", decode[messageResponse](t, rec).Message)

	rec = a.do(http.MethodGet, "/api/speakers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked token")
}

func TestAuth_BadCredentials(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()
	a.token = ""

	rec := a.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@example.com", "password": "Wrong1234"},
		"Accept-Language", "en")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode[ProblemDetail](t, rec).Detail)
}

func TestAuth_LoginThrottled(t *testing.T) {
	a := newTestAPI(t, nil)
	body := map[string]string{"email": "nobody@example.com", "password": "Wrong1234"}
	for i := 0; i < LoginPolicy.Burst; i++ {
		rec := a.do(http.MethodPost, "/api/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := a.do(http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestAuth_LoginThrottleIgnoresEmailSpelling(t *testing.T) {
	a := newTestAPI(t, nil)
	spellings := []string{"Nobody@Example.com", " nobody@example.com", "NOBODY@EXAMPLE.COM ", "nobody@example.COM"}
	for i := 0; i < LoginPolicy.Burst; i++ {
		body := map[string]string{"email": spellings[i%len(spellings)], "password": "Wrong1234"}
		rec := a.do(http.MethodPost, "/api/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	for _, email := range spellings {
		rec := a.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "Wrong1234"})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, email)
	}
}

func TestAuth_SignupDisabled(t *testing.T) {
	a := newTestAPI(t, func(d *Deps) {
		keys, err := auth.NewKeySet("")
		require.NoError(t, err)
		d.Auth = auth.NewService(store.NewAccountStore(d.DB.(*sql.DB)), keys, validate.New(), auth.Options{TokenTTL: time.Hour})
	})
	rec := a.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "admin@example.com", "password": "Secret123", "confirm_password": "Secret123",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestValidation_Localized(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()

	rec := a.do(http.MethodPost, "/api/speakers", map[string]string{"name": "", "title": strings.Repeat("x", 201)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decode[ProblemDetail](t, rec)
	assert.Equal(t, "tr", rec.Header().Get("Content-Language"))
	fields := map[string]string{}
	for _, e := range p.Errors {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "name alanı zorunludur", fields["name"])
	assert.Equal(t, "title en fazla 200 karakter olabilir", fields["title"])

	rec = a.do(http.MethodPost, "/api/speakers", map[string]string{"name": "", "title": "ok", "photo": "/media/x.png"},
		"Accept-Language", "en-US,en;q=0.9")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))
	assert.Equal(t, "name is required", decode[ProblemDetail](t, rec).Detail)

	req := httptest.NewRequest(http.MethodPost, "/api/faq", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+a.token)
	out := httptest.NewRecorder()
	a.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestSpeakers_ReorderFlow(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		rec := a.do(http.MethodPost, "/api/speakers", map[string]string{"name": name, "title": "Engineer", "photo": "/media/speakers/a.png"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		ids = append(ids, decode[speakerJSON](t, rec).ID)
	}

	rec := a.do(http.MethodPut, "/api/speakers/"+ids[2]+"/order", map[string]int{"order_index": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[[]speakerJSON](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{list[0].Name, list[1].Name, list[2].Name})
	for i, sp := range list {
		assert.Equal(t, i, sp.OrderIndex)
	}

	rec = a.do(http.MethodPut, "/api/speakers/"+ids[0]+"/order", map[string]int{"order_index": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/api/speakers/"+ids[0]+"/order", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "order_index", decode[ProblemDetail](t, rec).Errors[0].Field)

	rec = a.do(http.MethodPut, "/api/speakers/missing/order", map[string]int{"order_index": 0})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodDelete, "/api/speakers/"+ids[2], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Kayıt başarıyla silindi", decode[messageResponse](t, rec).Message)

	rec = a.do(http.MethodGet, "/api/speakers", nil)
	list = decode[[]speakerJSON](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, 0, list[0].OrderIndex)
	assert.Equal(t, 1, list[1].OrderIndex)

	rec = a.do(http.MethodGet, "/api/speakers/"+ids[2], nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/api/admin/ordering/speakers/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"collection":"speakers","ok":true}`, rec.Body.String())
}

func TestPartners_TierMove(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()

	type partnerJSON struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		OrderIndex int    `json:"order_index"`
	}
	create := func(title, typ string) partnerJSON {
		rec := a.do(http.MethodPost, "/api/partners", map[string]string{"title": title, "type": typ})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[partnerJSON](t, rec)
	}
	g1 := create("G1", "gold")
	create("G2", "gold")
	s1 := create("S1", "silver")
	assert.Equal(t, 0, s1.OrderIndex)

	rec := a.do(http.MethodPost, "/api/partners", map[string]string{"title": "X", "type": "platinum"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/api/partners/"+g1.ID, map[string]string{"type": "silver"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[partnerJSON](t, rec)
	assert.Equal(t, "silver", moved.Type)
	assert.Equal(t, 1, moved.OrderIndex)

	rec = a.do(http.MethodGet, "/api/partners?type=gold", nil)
	gold := decode[[]partnerJSON](t, rec)
	require.Len(t, gold, 1)
	assert.Equal(t, 0, gold[0].OrderIndex)

	rec = a.do(http.MethodPut, "/api/partners/"+g1.ID+"/order", map[string]any{"order_index": 0, "type": "silver"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	silver := decode[[]partnerJSON](t, rec)
	require.Len(t, silver, 2)
	assert.Equal(t, g1.ID, silver[0].ID)
}

func TestUploads(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()

	rec := a.upload("/api/speakers/photo", "face.png", pngBytes, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	url := decode[uploadResponse](t, rec).URL
	require.True(t, strings.HasPrefix(url, "/media/speakers/"), url)

	rec = a.do(http.MethodGet, url, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	rec = a.upload("/api/speakers/photo", "notes.txt", []byte("plain text, not an image"), nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	big := append(append([]byte{}, pngBytes...), make([]byte, media.MaxImageSize)...)
	rec = a.upload("/api/teams/photo", "big.png", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = a.upload("/api/partners/logo", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAbout_Slots(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()

	rec := a.upload("/api/about/1", "hall.png", pngBytes, map[string]string{"name": "Hall"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.upload("/api/about/9", "hall.png", pngBytes, map[string]string{"name": "Hall"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.upload("/api/about/first", "hall.png", pngBytes, map[string]string{"name": "Hall"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/about", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[[]struct {
		Index int             `json:"index"`
		Image json.RawMessage `json:"image"`
	}](t, rec)
	require.Len(t, slots, 4)
	assert.Equal(t, "null", string(slots[0].Image))
	assert.NotEqual(t, "null", string(slots[1].Image))
}

func TestFAQ_CRUD(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()

	rec := a.do(http.MethodPost, "/api/faq", map[string]string{"question_text": "When?", "answer_text": "Soon."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[struct {
		ID string `json:"id"`
	}](t, rec).ID

	rec = a.do(http.MethodPut, "/api/faq/"+id, map[string]string{"question_text": "When exactly?", "answer_text": "May."})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodDelete, "/api/faq/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodDelete, "/api/faq/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_RepairUnknownCollection(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()

	rec := a.do(http.MethodPost, "/api/admin/ordering/speakers/repair", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[content.RepairReport](t, rec).Changed)

	rec = a.do(http.MethodPost, "/api/admin/ordering/sessions/repair", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIdempotency_ReplaysCreate(t *testing.T) {
	a := newTestAPI(t, nil)
	a.login()

	body := map[string]string{"name": "A", "title": "Engineer", "photo": "/media/speakers/a.png"}
	first := a.do(http.MethodPost, "/api/speakers", body, "Idempotency-Key", "create-a")
	require.Equal(t, http.StatusCreated, first.Code)
	second := a.do(http.MethodPost, "/api/speakers", body, "Idempotency-Key", "create-a")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	rec := a.do(http.MethodGet, "/api/speakers", nil)
	assert.Len(t, decode[[]speakerJSON](t, rec), 1)
}

func TestRateLimit_PerIP(t *testing.T) {
	a := newTestAPI(t, func(d *Deps) {
		d.RateLimit = ratelimit.Policy{RPS: 0.001, Burst: 2}
	})
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", nil).Code)
	rec := a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestCORS_Preflight(t *testing.T) {
	a := newTestAPI(t, nil)
	rec := a.do(http.MethodOptions, "/api/speakers", nil, "Origin", "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorWriter_ShiftConflict(t *testing.T) {
	errs := &errorWriter{catalog: i18n.New("en"), logger: discardLogger()}
	shift := &ordering.ShiftError{
		MovedID:    "m",
		FailedID:   "f",
		Applied:    []string{"a"},
		RolledBack: false,
		Err:        errors.New("disk full"),
	}
	req := httptest.NewRequest(http.MethodPut, "/api/speakers/m/order", nil)
	rec := httptest.NewRecorder()
	errs.Error(rec, req, shift)

	assert.Equal(t, http.StatusConflict, rec.Code)
	p := decode[ProblemDetail](t, rec)
	assert.Equal(t, "f", p.FailedItem)
	assert.Equal(t, "m", p.MovedItem)
	assert.Equal(t, []string{"a"}, p.Applied)
	require.NotNil(t, p.RolledBack)
	assert.False(t, *p.RolledBack)
	assert.Contains(t, p.Detail, "f")
}

func TestErrorWriter_InternalHidesCause(t *testing.T) {
	errs := &errorWriter{catalog: i18n.New("tr"), logger: discardLogger()}
	rec := httptest.NewRecorder()
	errs.Error(rec, httptest.NewRequest(http.MethodGet, "/api/faq", nil), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	p := decode[ProblemDetail](t, rec)
	assert.Equal(t, "Beklenmeyen bir hata oluştu", p.Detail)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
