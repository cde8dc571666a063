package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/project"
	"github.com/itakello/projectsync/internal/summarize"
)

func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Fill missing summaries and tags on Notion rows",
		Long: `Queries rows with status "To Add" or "Added" that are missing a summary or
tags, fetches each repository's readme and writes back only the properties
that were empty.`,
		RunE: runEnrich,
	}
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	if err := rt.requireStore(); err != nil {
		return err
	}
	ctx := cmd.Context()

	records, err := rt.store.Query(ctx, project.RecordFilter{
		Statuses: []project.Status{project.StatusToAdd, project.StatusAdded},
	})
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}

	enriched := 0
	for _, rec := range records {
		if rec.Record.URL == "" {
			continue
		}
		if rec.Record.Summary != "" && len(rec.Record.Tags) > 0 {
			continue
		}
		owner, repo := splitRepoURL(rec.Record.URL)
		if owner == "" || repo == "" {
			continue
		}

		readme, ok, err := rt.source.FetchReadme(ctx, owner, repo)
		if err != nil {
			rt.logger.Warn("readme fetch failed", zap.String("repo", repo), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		title := rec.Record.Title
		if title == "" {
			title = repo
		}
		summary, tags := rt.enricher.Enrich(ctx, summarize.Input{
			Title:     title,
			Readme:    readme,
			HasReadme: true,
		})

		var fields project.Fields
		if rec.Record.Summary == "" && summary != "" {
			fields.Summary = summary
		}
		if len(rec.Record.Tags) == 0 && len(tags) > 0 {
			fields.Tags = tags
		}
		if fields.Summary == "" && len(fields.Tags) == 0 {
			continue
		}

		if err := rt.store.Update(ctx, rec.ID, fields); err != nil {
			return fmt.Errorf("update record %s: %w", title, err)
		}
		rt.logger.Info("record enriched", zap.String("title", title))
		enriched++
	}

	rt.logger.Info("enrich finished", zap.Int("enriched", enriched), zap.Int("candidates", len(records)))
	return nil
}

// splitRepoURL extracts owner and repository from a repository page URL.
func splitRepoURL(raw string) (owner, repo string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
