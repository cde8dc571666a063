// Package api exposes the HTTP interface for the showcase service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/project"
	"github.com/itakello/projectsync/internal/reconcile"
	"github.com/itakello/projectsync/internal/telemetry"
)

// readFilter selects the remote records the public listing shows: rows
// marked Added plus rows nobody has triaged yet.
var readFilter = project.RecordFilter{
	Statuses:        []project.Status{project.StatusAdded},
	IncludeNoStatus: true,
}

// Server wires HTTP handlers to the project sources.
type Server struct {
	router  chi.Router
	source  project.RepoSource
	store   project.RecordStore
	curated []project.Record
	owner   string
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. hook handles
// inbound event deliveries and is mounted as-is; it owns its own response
// contract.
func NewServer(
	owner string,
	curated []project.Record,
	source project.RepoSource,
	store project.RecordStore,
	hook http.Handler,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		source:  source,
		store:   store,
		curated: curated,
		owner:   owner,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(telemetry.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Post("/webhooks/github", hook.ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/projects", s.getProjects)
		r.Get("/projects/diff", s.getDiff)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The service holds no connections open between requests; readiness is
	// process liveness.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// getProjects renders the reconciled, year-grouped listing. Both upstream
// fetches degrade to empty on failure so the page always renders.
func (s *Server) getProjects(w http.ResponseWriter, r *http.Request) {
	repos, remote := s.fetchSources(r.Context())
	view := reconcile.Merge(s.baseRecords(remote), repos, s.owner)
	writeJSON(w, http.StatusOK, view)
}

type DiffEntry struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	PushedAt    time.Time `json:"pushed_at"`
}

type DiffReport struct {
	Count   int         `json:"count"`
	Missing []DiffEntry `json:"missing"`
}

// getDiff reports live repositories the showcase does not reference yet.
func (s *Server) getDiff(w http.ResponseWriter, r *http.Request) {
	repos, remote := s.fetchSources(r.Context())
	writeJSON(w, http.StatusOK, BuildDiff(s.baseRecords(remote), repos, s.owner))
}

// BuildDiff lists repositories absent from the base record set by URL,
// skipping archived repositories, forks and the owner's profile repository.
func BuildDiff(base []project.Record, repos []project.Repo, owner string) DiffReport {
	siteURLs := make(map[string]struct{}, len(base))
	for _, rec := range base {
		if rec.URL != "" {
			siteURLs[strings.ToLower(rec.URL)] = struct{}{}
		}
	}

	missing := make([]DiffEntry, 0)
	for _, r := range repos {
		if r.Archived || r.Fork {
			continue
		}
		if strings.EqualFold(r.Name, owner) {
			continue
		}
		if _, ok := siteURLs[strings.ToLower(r.HTMLURL)]; ok {
			continue
		}
		missing = append(missing, DiffEntry{
			Title:       r.Name,
			URL:         r.HTMLURL,
			Description: r.Description,
			Language:    r.Language,
			PushedAt:    r.PushedAt,
		})
	}
	return DiffReport{Count: len(missing), Missing: missing}
}

// fetchSources issues the listing and remote-record fetches concurrently.
// Either failing is logged and degrades to an empty result.
func (s *Server) fetchSources(ctx context.Context) ([]project.Repo, []project.RemoteRecord) {
	var (
		repos  []project.Repo
		remote []project.RemoteRecord
		wg     sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := s.source.ListRepos(ctx)
		if err != nil {
			s.logger.Warn("repository listing failed", zap.Error(err))
			return
		}
		repos = r
	}()
	go func() {
		defer wg.Done()
		if !s.store.Enabled() {
			return
		}
		recs, err := s.store.Query(ctx, readFilter)
		if err != nil {
			s.logger.Warn("remote record query failed", zap.Error(err))
			return
		}
		remote = recs
	}()
	wg.Wait()
	return repos, remote
}

// baseRecords picks the base set for reconciliation: remote records when
// any exist, the curated list otherwise.
func (s *Server) baseRecords(remote []project.RemoteRecord) []project.Record {
	if len(remote) == 0 {
		return s.curated
	}
	records := make([]project.Record, 0, len(remote))
	for _, rr := range remote {
		records = append(records, rr.Record)
	}
	return records
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", requestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

// requestID returns the identifier stored by requestIDMiddleware, or "" when
// the request never passed through it.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
