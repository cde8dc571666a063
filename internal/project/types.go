// Package project defines the showcase domain model and the ports its
// pipelines depend on.
package project

import (
	"strconv"
	"time"
)

// Status tracks a record's lifecycle in the remote database. The pipeline
// only ever creates records as To Add or leaves status untouched; advancing
// to Added or Removed is done by hand in the database.
type Status string

// Remote record statuses.
const (
	StatusToAdd   Status = "To Add"
	StatusAdded   Status = "Added"
	StatusRemoved Status = "Removed"
)

// UnknownYear is the group key for records with no resolvable year.
const UnknownYear = "Unknown"

// Record is a display-ready project entry. Tags never contain a recognized
// programming-language name; such tokens live in Language instead.
type Record struct {
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	URL           string   `json:"url,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Language      string   `json:"language,omitempty"`
	Year          string   `json:"year,omitempty"`
	SortTimestamp int64    `json:"-"`
	Featured      bool     `json:"featured,omitempty"`
}

// RemoteRecord is a Record as stored in the remote database, with its page
// identity and lifecycle status.
type RemoteRecord struct {
	ID     string
	Record Record
	Status Status
}

// Repo is a repository listing entry from the hosting platform. It is
// fetched per request and never persisted.
type Repo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Language    string    `json:"language"`
	OwnerLogin  string    `json:"-"`
	Archived    bool      `json:"archived"`
	Fork        bool      `json:"fork"`
	Private     bool      `json:"private"`
	PushedAt    time.Time `json:"pushed_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Owner returns the account that owns the repository, falling back to the
// full-name prefix when the listing omitted the owner object.
func (r Repo) Owner() string {
	if r.OwnerLogin != "" {
		return r.OwnerLogin
	}
	for i := 0; i < len(r.FullName); i++ {
		if r.FullName[i] == '/' {
			return r.FullName[:i]
		}
	}
	return ""
}

// PushedYear derives the record year from the last-pushed time, falling back
// to the updated time. Returns 0 when neither is known.
func (r Repo) PushedYear() int {
	switch {
	case !r.PushedAt.IsZero():
		return r.PushedAt.Year()
	case !r.UpdatedAt.IsZero():
		return r.UpdatedAt.Year()
	default:
		return 0
	}
}

// View is the reconciled, grouped, ordered listing. Years holds the group
// keys in display order; Groups maps each year key to its records.
type View struct {
	Groups map[string][]Record `json:"groups"`
	Years  []string            `json:"years"`
}

// YearKey formats a numeric year as a group key.
func YearKey(year int) string {
	if year <= 0 {
		return UnknownYear
	}
	return strconv.Itoa(year)
}
