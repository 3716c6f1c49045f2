package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/importer"
	"github.com/jonathan/application-tracker/internal/server/ratelimit"
	"github.com/jonathan/application-tracker/internal/status"
	"github.com/jonathan/application-tracker/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeImporter records the credentials it was given.
type fakeImporter struct {
	msg   string
	err   error
	calls int
	got   importer.Credentials
}

func (f *fakeImporter) Run(_ context.Context, creds importer.Credentials) (string, error) {
	f.calls++
	f.got = creds
	if creds.Username == "" || creds.Password == "" {
		return "", importer.ErrMissingCredentials
	}
	return f.msg, f.err
}

type testServer struct {
	*Server
	store    db.Store
	importer *fakeImporter
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)

	imp := &fakeImporter{msg: "Imported or updated 2 applications."}
	s, err := New(Config{
		Store:     store,
		Importer:  imp,
		Clock:     func() time.Time { return time.Date(2026, time.October, 17, 8, 0, 0, 0, time.UTC) },
		RateLimit: &ratelimit.Config{Enabled: false},
	})
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)

	return &testServer{Server: s, store: store, importer: imp, handler: s.Handler()}
}

func (ts *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decodeJSON[map[string]string](t, w))
}

func TestCreateApplication(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/applications", map[string]string{
		"company": " Acme ", "role": "Intern", "status": "final round",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	app := decodeJSON[db.Application](t, w)
	assert.Positive(t, app.ID)
	assert.Equal(t, "Acme", app.Company)
	assert.Equal(t, status.Onsite, app.Status)
	assert.Equal(t, "2026-10-17", app.AppliedDate)
	assert.Nil(t, app.FollowUpDate)
}

func TestCreateApplication_Form(t *testing.T) {
	ts := newTestServer(t)

	form := url.Values{"company": {"Globex"}, "role": {"SWE"}, "follow_up_date": {"2026-11-01"}}
	req := httptest.NewRequest(http.MethodPost, "/applications", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decodeJSON[db.Application](t, w)
	assert.Equal(t, "Globex", app.Company)
	assert.Equal(t, status.Applied, app.Status)
	require.NotNil(t, app.FollowUpDate)
	assert.Equal(t, "2026-11-01", *app.FollowUpDate)
}

func TestCreateApplication_Validation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/applications", map[string]string{"role": "Intern"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "company is required", decodeJSON[map[string]string](t, w)["error"])

	w = ts.do(t, http.MethodPost, "/applications", map[string]string{"company": "Acme", "role": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "role is required", decodeJSON[map[string]string](t, w)["error"])

	n, err := ts.store.CountApplications(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateApplication_BadBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/applications", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON[map[string]string](t, w)["error"], "Invalid request body")
}

func TestApplicationLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/applications", map[string]string{"company": "Acme", "role": "Intern", "notes": "n"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeJSON[db.Application](t, w)
	path := fmt.Sprintf("/applications/%d", created.ID)

	w = ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decodeJSON[db.Application](t, w))

	w = ts.do(t, http.MethodPut, path, map[string]string{"company": "Acme", "role": "Intern", "status": "Offer Accepted"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeJSON[db.Application](t, w)
	assert.Equal(t, status.Offer, updated.Status)
	assert.Empty(t, updated.Notes)

	w = ts.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Application deleted.", decodeJSON[map[string]string](t, w)["message"])

	w = ts.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Application not found", decodeJSON[map[string]string](t, w)["error"])
}

func TestMissingApplication(t *testing.T) {
	ts := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := ts.do(t, method, "/applications/404", map[string]string{"company": "Acme", "role": "Intern"})
		assert.Equal(t, http.StatusNotFound, w.Code, method)
		assert.Equal(t, "Application not found", decodeJSON[map[string]string](t, w)["error"])
	}
}

func TestInvalidApplicationID(t *testing.T) {
	ts := newTestServer(t)

	for _, id := range []string{"abc", "0", "-3"} {
		w := ts.do(t, http.MethodGet, "/applications/"+id, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestListApplications(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/applications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())

	for _, d := range []string{"2026-09-01", "2026-10-01", "2026-08-01"} {
		w := ts.do(t, http.MethodPost, "/applications", map[string]string{"company": "C" + d, "role": "R", "applied_date": d})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = ts.do(t, http.MethodGet, "/applications", nil)
	apps := decodeJSON[[]db.Application](t, w)
	require.Len(t, apps, 3)
	assert.Equal(t, "2026-10-01", apps[0].AppliedDate)
	assert.Equal(t, "2026-08-01", apps[2].AppliedDate)

	w = ts.do(t, http.MethodGet, "/applications?order=oldest&limit=1", nil)
	apps = decodeJSON[[]db.Application](t, w)
	require.Len(t, apps, 1)
	assert.Equal(t, "2026-08-01", apps[0].AppliedDate)

	w = ts.do(t, http.MethodGet, "/applications?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t)
	_, err := db.SeedSampleData(context.Background(), ts.store, time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	w := ts.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	dash := decodeJSON[tracker.Dashboard](t, w)
	assert.Equal(t, 5, dash.Stats.Total)
	assert.Len(t, dash.Recent, 5)
	total := 0
	for _, sc := range dash.StageBreakdown {
		total += sc.Count
	}
	assert.Equal(t, 5, total)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw, "stage_breakdown")
	assert.Contains(t, raw, "monthly_velocity")
	assert.Contains(t, raw["stats"], "response_rate")
}

func TestExport(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/applications", map[string]string{"company": "Acme", "role": "Intern", "notes": "a, b"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodGet, "/applications/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=applications.csv", w.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "company", records[0][0])
	assert.Equal(t, "a, b", records[1][7])
}

func TestImport(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/import", map[string]string{"username": "student", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Imported or updated 2 applications.", decodeJSON[map[string]string](t, w)["message"])
	assert.Equal(t, importer.Credentials{Username: "student", Password: "secret"}, ts.importer.got)
}

func TestImport_Form(t *testing.T) {
	ts := newTestServer(t)

	form := url.Values{"username": {"student"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student", ts.importer.got.Username)
}

func TestImport_MissingCredentials(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/import", map[string]string{"username": "student"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username and password are required.", decodeJSON[map[string]string](t, w)["error"])
}

func TestImport_Failure(t *testing.T) {
	ts := newTestServer(t)
	ts.importer.err = &importer.ImportError{Detail: "login error: failed to submit login form", Cause: errors.New("exit status 1")}

	w := ts.do(t, http.MethodPost, "/import", map[string]string{"username": "student", "password": "secret"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeJSON[map[string]string](t, w)
	assert.Equal(t, "Import failed: login error: failed to submit login form", body["error"])
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodOptions, "/applications/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRateLimitedImport(t *testing.T) {
	store, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)

	imp := &fakeImporter{msg: "ok"}
	s, err := New(Config{
		Store:    store,
		Importer: imp,
		RateLimit: &ratelimit.Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			EndpointConfigs: ratelimit.DefaultEndpointConfigs(10),
		},
	})
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	h := s.Handler()

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(`{"username":"u","password":"p"}`))
		req.RemoteAddr = "192.0.2.10:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	assert.Equal(t, http.StatusOK, send().Code)
	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, 2, imp.calls)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{Importer: &fakeImporter{}})
	assert.Error(t, err)

	store, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	_, err = New(Config{Store: store})
	assert.Error(t, err)
}

func TestServe_GracefulShutdown(t *testing.T) {
	ts := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestExtractClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	assert.Equal(t, "198.51.100.7", extractClientID(req))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", extractClientID(req))
}
