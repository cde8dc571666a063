// Package reconcile merges the curated list, the live repository listing
// and the remote database records into one deduplicated, year-grouped view.
package reconcile

import (
	"sort"
	"strconv"
	"strings"

	"github.com/itakello/projectsync/internal/project"
)

// repoInfo is what a listing entry contributes to record enrichment.
type repoInfo struct {
	year      string
	timestamp int64
	language  string
}

// Merge builds the showcase view from a base record list (remote records
// when available, curated otherwise) and the live repository listing.
// The merge is pure: identical inputs always produce an identical view.
func Merge(base []project.Record, repos []project.Repo, owner string) project.View {
	// Lookups are built from ALL repositories so curated entries pointing
	// at forks or archived repositories still get enriched.
	byURL := make(map[string]repoInfo, len(repos))
	byName := make(map[string]repoInfo, len(repos))
	for _, r := range repos {
		info := repoInfo{
			year:      project.YearKey(r.PushedYear()),
			timestamp: r.PushedAt.UnixMilli(),
			language:  r.Language,
		}
		if r.PushedAt.IsZero() {
			info.timestamp = 0
		}
		byURL[strings.ToLower(r.HTMLURL)] = info
		byName[strings.ToLower(r.Name)] = info
	}

	seenURLs := make(map[string]struct{}, len(base))
	merged := make([]project.Record, 0, len(base)+len(repos))

	for _, rec := range base {
		urlKey := strings.ToLower(rec.URL)
		var match repoInfo
		var ok bool
		if urlKey != "" {
			match, ok = byURL[urlKey]
		} else {
			match, ok = byName[strings.ToLower(rec.Title)]
		}
		merged = append(merged, enrich(rec, match, ok))
		if urlKey != "" {
			seenURLs[urlKey] = struct{}{}
		}
	}

	for _, r := range repos {
		if r.Archived || r.Fork {
			continue
		}
		// The account's self-named repository is a profile readme, not a
		// project.
		if strings.EqualFold(r.Name, owner) {
			continue
		}
		urlKey := strings.ToLower(r.HTMLURL)
		if _, seen := seenURLs[urlKey]; seen {
			continue
		}
		seenURLs[urlKey] = struct{}{}
		merged = append(merged, recordFromRepo(r))
	}

	return group(merged)
}

// enrich fills year, timestamp and language from the matching repository
// only where the record does not already specify them, and promotes any
// language token out of the tag list.
func enrich(rec project.Record, match repoInfo, ok bool) project.Record {
	language, tags := splitLanguageTag(rec.Tags)
	rec.Tags = tags
	if language != "" {
		rec.Language = language
	}

	if !ok {
		return rec
	}
	if rec.Year == "" {
		rec.Year = match.year
	}
	if rec.SortTimestamp == 0 {
		rec.SortTimestamp = match.timestamp
	}
	if rec.Language == "" {
		rec.Language = match.language
	}
	return rec
}

// recordFromRepo synthesizes a display record for a repository nothing in
// the base set references. The language is reported separately and never
// duplicated into tags.
func recordFromRepo(r project.Repo) project.Record {
	rec := project.Record{
		Title:    PrettifyRepoName(r.Name),
		Summary:  r.Description,
		URL:      r.HTMLURL,
		Language: r.Language,
		Year:     project.YearKey(r.PushedYear()),
	}
	if !r.PushedAt.IsZero() {
		rec.SortTimestamp = r.PushedAt.UnixMilli()
	}
	return rec
}

// group partitions records by year and orders them for display: records
// descend by timestamp within a year (stable, timestamp-less last), years
// descend numerically with Unknown always last.
func group(records []project.Record) project.View {
	groups := make(map[string][]project.Record)
	for _, rec := range records {
		key := rec.Year
		if key == "" {
			key = project.UnknownYear
		}
		groups[key] = append(groups[key], rec)
	}

	years := make([]string, 0, len(groups))
	for year := range groups {
		sort.SliceStable(groups[year], func(i, j int) bool {
			return groups[year][i].SortTimestamp > groups[year][j].SortTimestamp
		})
		years = append(years, year)
	}

	sort.Slice(years, func(i, j int) bool {
		if years[i] == project.UnknownYear {
			return false
		}
		if years[j] == project.UnknownYear {
			return true
		}
		yi, _ := strconv.Atoi(years[i])
		yj, _ := strconv.Atoi(years[j])
		return yi > yj
	})

	return project.View{Groups: groups, Years: years}
}
