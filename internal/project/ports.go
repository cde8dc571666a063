package project

import "context"

// RepoSource reads repository data from the hosting platform.
type RepoSource interface {
	// ListRepos returns every repository for the configured account.
	// Upstream failures degrade to an empty slice without error only at the
	// call sites that tolerate it; the source itself reports them.
	ListRepos(ctx context.Context) ([]Repo, error)

	// FetchReadme returns the readme body for a repository, trying
	// case-variant paths. ok is false when no variant exists.
	FetchReadme(ctx context.Context, owner, repo string) (body string, ok bool, err error)

	// FetchTopics returns the repository's topic labels, empty when the
	// repository has none or the endpoint is unavailable.
	FetchTopics(ctx context.Context, owner, repo string) ([]string, error)
}

// Fields is a sparse set of record properties for writes against the remote
// database. Zero-valued fields are omitted, never defaulted.
type Fields struct {
	URL      string
	Summary  string
	Tags     []string
	Language string
	Year     int
	Status   Status
}

// RecordFilter selects remote records by status.
type RecordFilter struct {
	Statuses        []Status
	IncludeNoStatus bool
}

// RecordStore reads and writes records in the remote structured database.
// Implementations are no-ops when the database is not configured.
type RecordStore interface {
	// Enabled reports whether the store has credentials to talk to.
	Enabled() bool

	// Query returns records matching the filter, following pagination.
	Query(ctx context.Context, filter RecordFilter) ([]RemoteRecord, error)

	// Upsert finds a record by URL (or exact title when URL is absent) and
	// updates the supplied fields, or creates a new record. Idempotent
	// under repeated calls with the same identity.
	Upsert(ctx context.Context, title string, fields Fields) error

	// Update writes the supplied fields to an existing record by identity.
	Update(ctx context.Context, id string, fields Fields) error
}

// Summary is a derived short description plus topic tags.
type Summary struct {
	Summary string
	Tags    []string
}

// Summarizer derives a Summary from readme text. ok is false when the
// service is unavailable or returned nothing usable; callers fall back to
// deterministic extraction.
type Summarizer interface {
	Summarize(ctx context.Context, title, readme string) (s Summary, ok bool)
}
