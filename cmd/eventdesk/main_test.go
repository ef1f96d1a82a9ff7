package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liteEnv points the CLI at a fresh SQLite data directory.
func liteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, k := range []string{"EVENTDESK_CONFIG", "DATABASE_URL", "REDIS_ADDR", "MEDIA_STORAGE_TYPE", "ORDERING_MODE", "ABOUT_SLOTS"} {
		t.Setenv(k, "")
	}
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "ERROR")
	return dir
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"eventdesk", "help"}, &out, io.Discard)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "serve")
	assert.Contains(t, out.String(), "repair")
}

func TestRun_Unknown(t *testing.T) {
	var errOut bytes.Buffer
	code := Run([]string{"eventdesk", "launch"}, io.Discard, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "Unknown command: launch")
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, Run([]string{"eventdesk", "version"}, &out, io.Discard))
	assert.Equal(t, "eventdesk dev\n", out.String())
}

func TestRun_DefaultsToServe(t *testing.T) {
	called := 0
	orig := startServer
	startServer = func(_, _ io.Writer) int { called++; return 0 }
	t.Cleanup(func() { startServer = orig })

	assert.Equal(t, 0, Run([]string{"eventdesk"}, io.Discard, io.Discard))
	assert.Equal(t, 0, Run([]string{"eventdesk", "serve"}, io.Discard, io.Discard))
	assert.Equal(t, 2, called)
}

func TestRun_Migrate(t *testing.T) {
	dir := liteEnv(t)
	var out bytes.Buffer
	require.Equal(t, 0, Run([]string{"eventdesk", "migrate"}, &out, io.Discard))
	assert.Contains(t, out.String(), "schema up to date")
	assert.FileExists(t, filepath.Join(dir, "eventdesk.db"))
}

func TestRun_SeedThenRepair(t *testing.T) {
	dir := liteEnv(t)
	fixture := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(`
speakers:
  - name: Ada
    title: Analyst
    photo: /media/speakers/ada.png
partners:
  - title: Acme
    type: gold
`), 0600))

	var out bytes.Buffer
	require.Equal(t, 0, Run([]string{"eventdesk", "seed", "--json", fixture}, &out, io.Discard))
	var rep struct {
		Speakers int `json:"speakers"`
		Partners int `json:"partners"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, 1, rep.Speakers)
	assert.Equal(t, 1, rep.Partners)

	out.Reset()
	require.Equal(t, 0, Run([]string{"eventdesk", "repair", "--json"}, &out, io.Discard))
	var reports []struct {
		Collection string `json:"collection"`
		Changed    int    `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 3)
	for _, r := range reports {
		assert.Zero(t, r.Changed, r.Collection)
	}

	out.Reset()
	assert.Equal(t, 0, Run([]string{"eventdesk", "repair", "--verify", "speakers"}, &out, io.Discard))
	assert.Contains(t, out.String(), "speakers")

	assert.Equal(t, 1, Run([]string{"eventdesk", "repair", "sessions"}, io.Discard, io.Discard))
}

func TestRun_SeedUsage(t *testing.T) {
	assert.Equal(t, 2, Run([]string{"eventdesk", "seed"}, io.Discard, io.Discard))
	liteEnv(t)
	assert.Equal(t, 1, Run([]string{"eventdesk", "seed", filepath.Join(t.TempDir(), "absent.yaml")}, io.Discard, io.Discard))
}

func TestRun_Health(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	var out bytes.Buffer
	assert.Equal(t, 0, Run([]string{"eventdesk", "health", "--url", ok.URL}, &out, io.Discard))
	assert.Equal(t, "OK\n", out.String())
	assert.Equal(t, 1, Run([]string{"eventdesk", "health", "--url", down.URL}, io.Discard, io.Discard))
}
