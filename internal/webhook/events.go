package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/itakello/projectsync/internal/project"
)

// Event is a parsed, classified delivery. Exactly three variants exist:
// RepositoryEvent, PushEvent and Unhandled. Classification happens once,
// at parse time; handlers never inspect raw payloads.
type Event interface {
	eventType() string
}

// RepositoryEvent is a repository lifecycle notification (created,
// publicized, deleted, ...).
type RepositoryEvent struct {
	Action string
	Repo   project.Repo
}

func (RepositoryEvent) eventType() string { return "repository" }

// PushEvent is a branch push. TouchedPaths is the union of added, modified
// and removed paths in the head commit.
type PushEvent struct {
	Repo         project.Repo
	TouchedPaths []string
}

func (PushEvent) eventType() string { return "push" }

// Unhandled is any delivery type the service does not act on. It is
// acknowledged but never processed.
type Unhandled struct {
	Type string
}

func (u Unhandled) eventType() string { return u.Type }

// eventTime accepts the timestamp shapes delivery payloads use: RFC 3339
// strings, unix-second numbers, or null.
type eventTime struct {
	time.Time
}

func (t *eventTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	var unix int64
	if err := json.Unmarshal(data, &unix); err != nil {
		return fmt.Errorf("unsupported timestamp %s", data)
	}
	t.Time = time.Unix(unix, 0).UTC()
	return nil
}

type payloadRepo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Language    string    `json:"language"`
	Archived    bool      `json:"archived"`
	Fork        bool      `json:"fork"`
	Private     bool      `json:"private"`
	PushedAt    eventTime `json:"pushed_at"`
	UpdatedAt   eventTime `json:"updated_at"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (p payloadRepo) toRepo() project.Repo {
	return project.Repo{
		Name:        p.Name,
		FullName:    p.FullName,
		Description: p.Description,
		HTMLURL:     p.HTMLURL,
		Language:    p.Language,
		OwnerLogin:  p.Owner.Login,
		Archived:    p.Archived,
		Fork:        p.Fork,
		Private:     p.Private,
		PushedAt:    p.PushedAt.Time,
		UpdatedAt:   p.UpdatedAt.Time,
	}
}

type eventPayload struct {
	Action     string      `json:"action"`
	Repository payloadRepo `json:"repository"`
	HeadCommit struct {
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
		Removed  []string `json:"removed"`
	} `json:"head_commit"`
}

// ParseEvent classifies a raw delivery body by its event-type header value.
// The body must be valid JSON for every type, even ones the service does
// not act on; a JSON error is the caller's signal for a 400.
func ParseEvent(eventType string, body []byte) (Event, error) {
	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}

	switch eventType {
	case "repository":
		return RepositoryEvent{
			Action: payload.Action,
			Repo:   payload.Repository.toRepo(),
		}, nil
	case "push":
		touched := make([]string, 0,
			len(payload.HeadCommit.Added)+len(payload.HeadCommit.Modified)+len(payload.HeadCommit.Removed))
		touched = append(touched, payload.HeadCommit.Added...)
		touched = append(touched, payload.HeadCommit.Modified...)
		touched = append(touched, payload.HeadCommit.Removed...)
		return PushEvent{
			Repo:         payload.Repository.toRepo(),
			TouchedPaths: touched,
		}, nil
	default:
		return Unhandled{Type: eventType}, nil
	}
}
