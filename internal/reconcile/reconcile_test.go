package reconcile

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itakello/projectsync/internal/project"
)

const owner = "Itakello"

func repoAt(name, url, language string, pushed time.Time) project.Repo {
	return project.Repo{
		Name:     name,
		HTMLURL:  url,
		Language: language,
		PushedAt: pushed,
	}
}

func TestMerge_CuratedEnrichmentExample(t *testing.T) {
	t.Parallel()

	// The worked example: a curated entry matching a live repository pushed
	// in 2024 with language Python.
	curated := []project.Record{{
		Title: "Lecture Summarizer",
		URL:   "https://host/x/Lecture_summarizer",
		Tags:  []string{"Python", "Summarization"},
	}}
	repos := []project.Repo{
		repoAt("Lecture_summarizer", "https://host/x/Lecture_summarizer", "Python",
			time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}

	view := Merge(curated, repos, owner)
	require.Equal(t, []string{"2024"}, view.Years)
	require.Len(t, view.Groups["2024"], 1)

	got := view.Groups["2024"][0]
	require.Equal(t, "Lecture Summarizer", got.Title)
	require.Equal(t, []string{"Summarization"}, got.Tags)
	require.Equal(t, "Python", got.Language)
	require.Equal(t, "2024", got.Year)
	require.NotZero(t, got.SortTimestamp)
}

func TestMerge_ExplicitYearNeverOverwritten(t *testing.T) {
	t.Parallel()

	curated := []project.Record{{
		Title: "Old Project",
		URL:   "https://github.com/itakello/old-project",
		Year:  "2021",
	}}
	repos := []project.Repo{
		repoAt("old-project", "https://github.com/itakello/old-project", "Go",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	view := Merge(curated, repos, owner)
	require.Equal(t, []string{"2021"}, view.Years)
	require.Equal(t, "2021", view.Groups["2021"][0].Year)
	require.Equal(t, "Go", view.Groups["2021"][0].Language)
}

func TestMerge_NameFallbackForURLLessRecords(t *testing.T) {
	t.Parallel()

	// Without a URL the title is the identity key, so enrichment matches the
	// repository by name. The repo still appears on its own because only a
	// URL claims it.
	curated := []project.Record{{
		Title: "Plantalot",
		Tags:  []string{"Gardening"},
	}}
	repos := []project.Repo{
		repoAt("plantalot", "https://github.com/itakello/plantalot", "Go",
			time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)),
	}

	view := Merge(curated, repos, owner)
	require.Equal(t, []string{"2022"}, view.Years)
	require.Len(t, view.Groups["2022"], 2)

	enriched := view.Groups["2022"][0]
	require.Equal(t, "Plantalot", enriched.Title)
	require.Equal(t, "Go", enriched.Language)
	require.Equal(t, "2022", enriched.Year)
}

func TestMerge_NoDuplicateURLs(t *testing.T) {
	t.Parallel()

	curated := []project.Record{{
		Title: "Thing",
		// Case differs from the listing URL on purpose.
		URL: "https://github.com/Itakello/Thing",
	}}
	repos := []project.Repo{
		repoAt("thing", "https://github.com/itakello/thing", "Rust",
			time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)),
	}

	view := Merge(curated, repos, owner)

	seen := map[string]int{}
	total := 0
	for _, year := range view.Years {
		for _, rec := range view.Groups[year] {
			total++
			if rec.URL != "" {
				seen[strings.ToLower(rec.URL)]++
			}
		}
	}
	require.Equal(t, 1, total)
	for url, n := range seen {
		require.Equal(t, 1, n, "duplicate url %s", url)
	}
}

func TestMerge_ResidualExclusions(t *testing.T) {
	t.Parallel()

	pushed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	repos := []project.Repo{
		{Name: "itakello", HTMLURL: "https://github.com/Itakello/itakello", PushedAt: pushed},
		{Name: "forked", HTMLURL: "https://github.com/Itakello/forked", Fork: true, PushedAt: pushed},
		{Name: "archived", HTMLURL: "https://github.com/Itakello/archived", Archived: true, PushedAt: pushed},
		{Name: "kept", HTMLURL: "https://github.com/Itakello/kept", Description: "Stays", PushedAt: pushed},
	}

	view := Merge(nil, repos, owner)
	require.Equal(t, []string{"2024"}, view.Years)
	require.Len(t, view.Groups["2024"], 1)
	require.Equal(t, "Kept", view.Groups["2024"][0].Title)
	require.Equal(t, "Stays", view.Groups["2024"][0].Summary)
	require.Nil(t, view.Groups["2024"][0].Tags)
}

func TestMerge_ArchivedForkStillEnrichesCurated(t *testing.T) {
	t.Parallel()

	curated := []project.Record{{
		Title: "Co-voyager (fork)",
		URL:   "https://github.com/Itakello/Co-voyager",
	}}
	repos := []project.Repo{{
		Name:     "Co-voyager",
		HTMLURL:  "https://github.com/Itakello/Co-voyager",
		Language: "JavaScript",
		Fork:     true,
		PushedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}}

	view := Merge(curated, repos, owner)
	require.Len(t, view.Groups["2024"], 1)
	require.Equal(t, "JavaScript", view.Groups["2024"][0].Language)
}

func TestMerge_GroupOrdering(t *testing.T) {
	t.Parallel()

	mk := func(title string, ts time.Time) project.Repo {
		return repoAt(title, "https://github.com/itakello/"+title, "", ts)
	}
	repos := []project.Repo{
		mk("b-2024", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
		mk("a-2024", time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)),
		mk("c-2022", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	curated := []project.Record{{Title: "No Year At All"}}

	view := Merge(curated, repos, owner)
	require.Equal(t, []string{"2024", "2022", "Unknown"}, view.Years)

	within := view.Groups["2024"]
	require.Len(t, within, 2)
	require.Equal(t, "A 2024", within[0].Title)
	require.Equal(t, "B 2024", within[1].Title)

	require.Len(t, view.Groups["Unknown"], 1)
}

func TestMerge_TimestamplessSortLastStably(t *testing.T) {
	t.Parallel()

	curated := []project.Record{
		{Title: "First Untimed", Year: "2024"},
		{Title: "Second Untimed", Year: "2024"},
	}
	repos := []project.Repo{
		repoAt("timed", "https://github.com/itakello/timed", "",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	view := Merge(curated, repos, owner)
	group := view.Groups["2024"]
	require.Len(t, group, 3)
	require.Equal(t, "Timed", group[0].Title)
	require.Equal(t, "First Untimed", group[1].Title)
	require.Equal(t, "Second Untimed", group[2].Title)
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	curated := []project.Record{
		{Title: "Plantalot", URL: "https://github.com/Itakello/Plantalot", Tags: []string{"Java", "UI/UX"}},
		{Title: "No Repo Here"},
	}
	repos := []project.Repo{
		repoAt("Plantalot", "https://github.com/Itakello/Plantalot", "Java",
			time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)),
		repoAt("extra-ai-tool", "https://github.com/Itakello/extra-ai-tool", "Python",
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	first := Merge(curated, repos, owner)
	second := Merge(curated, repos, owner)
	require.True(t, reflect.DeepEqual(first, second))
}

func TestPrettifyRepoName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"lecture_summarizer", "Lecture Summarizer"},
		{"extra-ai-tool", "Extra AI Tool"},
		{"llm-playground", "LLM Playground"},
		{"tom-experiments", "TOM Experiments"},
		{"single", "Single"},
		{"MIXED_case-Name", "Mixed Case Name"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, PrettifyRepoName(tt.in), "input %q", tt.in)
	}
}

func TestSplitLanguageTag(t *testing.T) {
	t.Parallel()

	lang, rest := splitLanguageTag([]string{"Android", "Java", "Firebase"})
	require.Equal(t, "Java", lang)
	require.Equal(t, []string{"Android", "Firebase"}, rest)

	lang, rest = splitLanguageTag([]string{"Agents", "Minecraft"})
	require.Empty(t, lang)
	require.Equal(t, []string{"Agents", "Minecraft"}, rest)

	lang, rest = splitLanguageTag(nil)
	require.Empty(t, lang)
	require.Nil(t, rest)
}
