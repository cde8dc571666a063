package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/itakello/projectsync/internal/project"
)

type fakeSource struct {
	repos []project.Repo
	err   error
}

func (s *fakeSource) ListRepos(context.Context) ([]project.Repo, error) {
	return s.repos, s.err
}

func (s *fakeSource) FetchReadme(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}

func (s *fakeSource) FetchTopics(context.Context, string, string) ([]string, error) {
	return nil, nil
}

type fakeStore struct {
	enabled bool
	records []project.RemoteRecord
	err     error
	filters []project.RecordFilter
}

func (s *fakeStore) Enabled() bool { return s.enabled }

func (s *fakeStore) Query(_ context.Context, f project.RecordFilter) ([]project.RemoteRecord, error) {
	s.filters = append(s.filters, f)
	return s.records, s.err
}

func (s *fakeStore) Upsert(context.Context, string, project.Fields) error { return nil }

func (s *fakeStore) Update(context.Context, string, project.Fields) error { return nil }

func newTestServer(source *fakeSource, store *fakeStore, curated []project.Record) *Server {
	hook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return NewServer("itakello", curated, source, store, hook, zap.NewNop())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) project.View {
	t.Helper()
	var view project.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestGetProjectsUsesCuratedWhenRemoteEmpty(t *testing.T) {
	t.Parallel()

	curated := []project.Record{{Title: "Hand Picked", URL: "https://h/hand-picked", Year: "2024"}}
	source := &fakeSource{repos: []project.Repo{{
		Name:     "fresh-repo",
		HTMLURL:  "https://h/fresh-repo",
		Language: "Go",
		PushedAt: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
	}}}
	store := &fakeStore{enabled: true}

	rec := get(t, newTestServer(source, store, curated), "/v1/projects")
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeView(t, rec)
	require.Equal(t, []string{"2025", "2024"}, view.Years)
	require.Equal(t, "Fresh Repo", view.Groups["2025"][0].Title)
	require.Equal(t, "Hand Picked", view.Groups["2024"][0].Title)

	// The read path only ever asks for triaged-or-untouched rows.
	require.Len(t, store.filters, 1)
	require.Equal(t, []project.Status{project.StatusAdded}, store.filters[0].Statuses)
	require.True(t, store.filters[0].IncludeNoStatus)
}

func TestGetProjectsPrefersRemoteRecords(t *testing.T) {
	t.Parallel()

	curated := []project.Record{{Title: "Stale Curated", Year: "2020"}}
	store := &fakeStore{
		enabled: true,
		records: []project.RemoteRecord{{
			ID:     "p1",
			Record: project.Record{Title: "From Remote", URL: "https://h/from-remote", Year: "2024"},
			Status: project.StatusAdded,
		}},
	}

	rec := get(t, newTestServer(&fakeSource{}, store, curated), "/v1/projects")
	view := decodeView(t, rec)
	require.Equal(t, []string{"2024"}, view.Years)
	require.Equal(t, "From Remote", view.Groups["2024"][0].Title)
}

func TestGetProjectsDegradesOnUpstreamFailure(t *testing.T) {
	t.Parallel()

	curated := []project.Record{{Title: "Survivor", Year: "2023"}}
	source := &fakeSource{err: errors.New("rate limited")}
	store := &fakeStore{enabled: true, err: errors.New("notion down")}

	rec := get(t, newTestServer(source, store, curated), "/v1/projects")
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeView(t, rec)
	require.Equal(t, []string{"2023"}, view.Years)
	require.Equal(t, "Survivor", view.Groups["2023"][0].Title)
}

func TestGetDiff(t *testing.T) {
	t.Parallel()

	curated := []project.Record{{Title: "Listed", URL: "https://h/Listed"}}
	source := &fakeSource{repos: []project.Repo{
		{Name: "listed", HTMLURL: "https://h/listed"},
		{Name: "unlisted", HTMLURL: "https://h/unlisted", Description: "new one", Language: "Rust"},
		{Name: "itakello", HTMLURL: "https://h/itakello"},
		{Name: "forked", HTMLURL: "https://h/forked", Fork: true},
	}}

	rec := get(t, newTestServer(source, &fakeStore{}, curated), "/v1/projects/diff")
	require.Equal(t, http.StatusOK, rec.Code)

	var report DiffReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, 1, report.Count)
	require.Len(t, report.Missing, 1)
	require.Equal(t, "unlisted", report.Missing[0].Title)
	require.Equal(t, "Rust", report.Missing[0].Language)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeSource{}, &fakeStore{}, nil)
	require.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
	require.Equal(t, http.StatusOK, get(t, s, "/readyz").Code)

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestIDLoggedAndEchoed(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	hook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s := NewServer("itakello", nil, &fakeSource{}, &fakeStore{}, hook, zap.New(core))

	rec := get(t, s, "/healthz")
	headerID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, headerID)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	require.Equal(t, headerID, entries[0].ContextMap()["request_id"])
}

func TestWebhookRouteMounted(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeSource{}, &fakeStore{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
