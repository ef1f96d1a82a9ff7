package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "eventdesk", config.ServiceName)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.False(t, config.Enabled)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)

	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestTrackOperationDisabled(t *testing.T) {
	p, err := New(context.Background(), nil)
	require.NoError(t, err)

	ctx, done := p.TrackOperation(context.Background(), "ordering.repair", attribute.String("collection", "speakers"))
	require.NotNil(t, ctx)
	done(errors.New("boom"))
	done2 := func() {
		_, d := p.TrackOperation(context.Background(), "noop")
		d(nil)
	}
	assert.NotPanics(t, done2)
}

func TestMiddlewarePassesThrough(t *testing.T) {
	p, err := New(context.Background(), nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/speakers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	mux.HandleFunc("GET /boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	h := p.Middleware(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/speakers/42", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHTTPError(t *testing.T) {
	assert.Equal(t, "http status 502", HTTPError{Status: 502}.Error())
}
