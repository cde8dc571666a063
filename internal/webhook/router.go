// Package webhook authenticates and dispatches hosting-platform event
// deliveries. The endpoint contract is fixed: 401 on a bad signature, 400
// on an unparseable body, 500 when a recognized event's handler fails, and
// 200 with body "ok" otherwise, including recognized-but-no-op deliveries.
package webhook

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/project"
	"github.com/itakello/projectsync/internal/summarize"
	"github.com/itakello/projectsync/internal/telemetry"
)

const (
	headerEvent     = "X-GitHub-Event"
	headerDelivery  = "X-GitHub-Delivery"
	headerSignature = "X-Hub-Signature-256"
)

// readmePath matches a readme filename at any directory depth, any
// extension, any casing.
var readmePath = regexp.MustCompile(`(?i)(^|/)readme\.[a-z0-9]+$`)

// Router is the webhook endpoint. Each request is handled independently
// and synchronously: the response is held until the upsert commits, so
// deliveries for one repository become visible in commit order.
type Router struct {
	secret   string
	source   project.RepoSource
	store    project.RecordStore
	enricher *summarize.Enricher
	logger   *zap.Logger
}

// NewRouter wires the webhook endpoint to its collaborators.
func NewRouter(
	secret string,
	source project.RepoSource,
	store project.RecordStore,
	enricher *summarize.Enricher,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		secret:   secret,
		source:   source,
		store:    store,
		enricher: enricher,
		logger:   logger,
	}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	eventType := r.Header.Get(headerEvent)
	delivery := r.Header.Get(headerDelivery)
	logger := rt.logger.With(zap.String("event", eventType), zap.String("delivery", delivery))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("reading delivery body failed", zap.Error(err))
		telemetry.ObserveWebhookEvent(eventType, "malformed")
		writeText(w, http.StatusBadRequest, "Bad payload")
		return
	}

	if !VerifySignature(rt.secret, r.Header.Get(headerSignature), body) {
		logger.Warn("delivery rejected: signature mismatch")
		telemetry.ObserveWebhookEvent(eventType, "unauthorized")
		writeText(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	event, err := ParseEvent(eventType, body)
	if err != nil {
		logger.Warn("delivery rejected: unparseable body", zap.Error(err))
		telemetry.ObserveWebhookEvent(eventType, "malformed")
		writeText(w, http.StatusBadRequest, "Bad payload")
		return
	}

	if err := rt.handle(r, event); err != nil {
		logger.Error("event handler failed", zap.Error(err))
		telemetry.ObserveWebhookEvent(eventType, "error")
		writeText(w, http.StatusInternalServerError, "Handler error")
		return
	}

	telemetry.ObserveWebhookEvent(eventType, "ok")
	writeText(w, http.StatusOK, "ok")
}

func (rt *Router) handle(r *http.Request, event Event) error {
	switch e := event.(type) {
	case RepositoryEvent:
		return rt.handleRepository(r, e)
	case PushEvent:
		return rt.handlePush(r, e)
	default:
		return nil
	}
}

// handleRepository records newly created or publicized repositories with
// status "To Add". Forks, archived repositories and other lifecycle actions
// are acknowledged without effect.
func (rt *Router) handleRepository(r *http.Request, e RepositoryEvent) error {
	if e.Repo.Name == "" || e.Repo.Fork || e.Repo.Archived {
		return nil
	}
	if e.Action != "created" && e.Action != "publicized" {
		return nil
	}

	err := rt.store.Upsert(r.Context(), e.Repo.Name, project.Fields{
		URL:      e.Repo.HTMLURL,
		Summary:  e.Repo.Description,
		Language: e.Repo.Language,
		Year:     e.Repo.PushedYear(),
		Status:   project.StatusToAdd,
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Repo.Name, err)
	}
	rt.logger.Info("repository recorded",
		zap.String("repo", e.Repo.Name), zap.String("action", e.Action))
	return nil
}

// handlePush re-enriches a repository's record when a push touches its
// readme. Readme and topics are fetched concurrently; either fetch failing
// degrades to absence rather than failing the delivery.
func (rt *Router) handlePush(r *http.Request, e PushEvent) error {
	if e.Repo.Fork || e.Repo.Archived {
		return nil
	}
	owner, name := e.Repo.Owner(), e.Repo.Name
	if owner == "" || name == "" {
		return nil
	}
	if !touchesReadme(e.TouchedPaths) {
		return nil
	}

	ctx := r.Context()
	var (
		readme    string
		hasReadme bool
		topics    []string
		wg        sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		body, ok, err := rt.source.FetchReadme(ctx, owner, name)
		if err != nil {
			rt.logger.Warn("readme fetch failed", zap.String("repo", name), zap.Error(err))
			return
		}
		readme, hasReadme = body, ok
	}()
	go func() {
		defer wg.Done()
		t, err := rt.source.FetchTopics(ctx, owner, name)
		if err != nil {
			rt.logger.Warn("topics fetch failed", zap.String("repo", name), zap.Error(err))
			return
		}
		topics = t
	}()
	wg.Wait()

	summary, tags := rt.enricher.Enrich(ctx, summarize.Input{
		Title:       name,
		Readme:      readme,
		HasReadme:   hasReadme,
		Description: e.Repo.Description,
		Topics:      topics,
	})

	year := 0
	if !e.Repo.PushedAt.IsZero() {
		year = e.Repo.PushedAt.Year()
	}
	err := rt.store.Upsert(ctx, name, project.Fields{
		URL:      e.Repo.HTMLURL,
		Summary:  summary,
		Tags:     tags,
		Language: e.Repo.Language,
		Year:     year,
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	rt.logger.Info("readme change recorded",
		zap.String("repo", name), zap.Bool("readme", hasReadme), zap.Int("tags", len(tags)))
	return nil
}

// touchesReadme reports whether any changed path names a readme file.
func touchesReadme(paths []string) bool {
	for _, p := range paths {
		if readmePath.MatchString(p) {
			return true
		}
	}
	return false
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
