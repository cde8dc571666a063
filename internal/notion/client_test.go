package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itakello/projectsync/internal/project"
)

func pageJSON(id, title, url, summary string, tags []string, language string, year int, status string) map[string]any {
	props := map[string]any{
		"Name": map[string]any{
			"title": []map[string]any{{"plain_text": title}},
		},
		"URL":      map[string]any{"url": nil},
		"Summary":  map[string]any{"rich_text": []map[string]any{}},
		"Tags":     map[string]any{"multi_select": []map[string]any{}},
		"Language": map[string]any{"select": nil},
		"Year":     map[string]any{"number": nil},
		"Status":   map[string]any{"status": nil},
	}
	if url != "" {
		props["URL"] = map[string]any{"url": url}
	}
	if summary != "" {
		props["Summary"] = map[string]any{
			"rich_text": []map[string]any{{"plain_text": summary}},
		}
	}
	if len(tags) > 0 {
		selected := make([]map[string]any, 0, len(tags))
		for _, tag := range tags {
			selected = append(selected, map[string]any{"name": tag})
		}
		props["Tags"] = map[string]any{"multi_select": selected}
	}
	if language != "" {
		props["Language"] = map[string]any{"select": map[string]any{"name": language}}
	}
	if year > 0 {
		props["Year"] = map[string]any{"number": year}
	}
	if status != "" {
		props["Status"] = map[string]any{"status": map[string]any{"name": status}}
	}
	return map[string]any{"id": id, "properties": props}
}

func TestClient_Query_FollowsCursorAndFilters(t *testing.T) {
	t.Parallel()

	var filters []map[string]any
	call := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/databases/db-1/query", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, notionVersion, r.Header.Get("Notion-Version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 100, body["page_size"])
		if f, ok := body["filter"].(map[string]any); ok {
			filters = append(filters, f)
		}

		call++
		if call == 1 {
			require.Nil(t, body["start_cursor"])
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					pageJSON("p1", "Plantalot", "https://github.com/itakello/Plantalot", "Garden app",
						[]string{"Android", "UI/UX"}, "Java", 2023, "Added"),
				},
				"has_more":    true,
				"next_cursor": "cur-2",
			}))
			return
		}
		require.Equal(t, "cur-2", body["start_cursor"])
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				pageJSON("p2", "Mystery", "", "", nil, "", 0, ""),
			},
			"has_more": false,
		}))
	}))
	defer ts.Close()

	c := New(Config{Token: "tok", DatabaseID: "db-1", APIBase: ts.URL}, nil)
	records, err := c.Query(context.Background(), project.RecordFilter{
		Statuses:        []project.Status{project.StatusAdded},
		IncludeNoStatus: true,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "p1", records[0].ID)
	require.Equal(t, "Plantalot", records[0].Record.Title)
	require.Equal(t, []string{"Android", "UI/UX"}, records[0].Record.Tags)
	require.Equal(t, "Java", records[0].Record.Language)
	require.Equal(t, "2023", records[0].Record.Year)
	require.Equal(t, project.StatusAdded, records[0].Status)

	require.Equal(t, "Mystery", records[1].Record.Title)
	require.Empty(t, records[1].Record.Year)
	require.Empty(t, records[1].Status)

	// Both pages carry the same status filter: Added or no status at all.
	require.Len(t, filters, 2)
	raw, err := json.Marshal(filters[0])
	require.NoError(t, err)
	require.Contains(t, string(raw), `"equals":"Added"`)
	require.Contains(t, string(raw), `"is_empty":true`)
}

func TestClient_Query_NoFilterWhenUnrestricted(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Nil(t, body["filter"])
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}}))
	}))
	defer ts.Close()

	c := New(Config{Token: "tok", DatabaseID: "db-1", APIBase: ts.URL}, nil)
	records, err := c.Query(context.Background(), project.RecordFilter{})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestClient_Upsert_CreatesWhenUnmatched(t *testing.T) {
	t.Parallel()

	var created map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/databases/db-1/query":
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}}))
		case "/v1/pages":
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"id": "new-page"}))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	c := New(Config{Token: "tok", DatabaseID: "db-1", APIBase: ts.URL}, nil)
	err := c.Upsert(context.Background(), "New Project", project.Fields{
		URL:     "https://github.com/itakello/new-project",
		Summary: "A tool",
		Year:    2025,
		Status:  project.StatusToAdd,
	})
	require.NoError(t, err)

	parent := created["parent"].(map[string]any)
	require.Equal(t, "db-1", parent["database_id"])
	props := created["properties"].(map[string]any)
	require.Contains(t, props, "Name")
	require.Contains(t, props, "URL")
	require.Contains(t, props, "Summary")
	require.Contains(t, props, "Year")
	require.Contains(t, props, "Status")
	// Unsupplied optional fields are omitted, never defaulted.
	require.NotContains(t, props, "Tags")
	require.NotContains(t, props, "Language")
}

func TestClient_Upsert_UpdatesExistingByURL(t *testing.T) {
	t.Parallel()

	var lookup map[string]any
	var patchedPath string
	var patched map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/databases/db-1/query":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&lookup))
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					pageJSON("p9", "Existing", "https://github.com/itakello/existing", "", nil, "", 0, ""),
				},
			}))
		case r.Method == http.MethodPatch:
			patchedPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"id": "p9"}))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer ts.Close()

	c := New(Config{Token: "tok", DatabaseID: "db-1", APIBase: ts.URL}, nil)
	err := c.Upsert(context.Background(), "Existing", project.Fields{
		URL:     "https://github.com/itakello/existing",
		Summary: "Fresh summary",
	})
	require.NoError(t, err)
	require.Equal(t, "/v1/pages/p9", patchedPath)

	// Lookup matched by URL or exact title, one result max.
	require.EqualValues(t, 1, lookup["page_size"])
	rawFilter, err := json.Marshal(lookup["filter"])
	require.NoError(t, err)
	require.Contains(t, string(rawFilter), "https://github.com/itakello/existing")
	require.Contains(t, string(rawFilter), `"equals":"Existing"`)

	props := patched["properties"].(map[string]any)
	require.Contains(t, props, "Summary")
	require.NotContains(t, props, "Year")
	require.NotContains(t, props, "Status")
}

func TestClient_NoopWhenUnconfigured(t *testing.T) {
	t.Parallel()

	c := New(Config{}, nil)
	require.False(t, c.Enabled())

	records, err := c.Query(context.Background(), project.RecordFilter{})
	require.NoError(t, err)
	require.Nil(t, records)

	require.NoError(t, c.Upsert(context.Background(), "Anything", project.Fields{}))
	require.NoError(t, c.Update(context.Background(), "p1", project.Fields{}))
}

func TestClient_Upsert_SurfacesAPIError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer ts.Close()

	c := New(Config{Token: "tok", DatabaseID: "db-1", APIBase: ts.URL}, nil)
	err := c.Upsert(context.Background(), "Anything", project.Fields{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}
