package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/project"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push unlisted GitHub repositories into Notion",
		Long: `Lists the configured account's repositories and creates a Notion row with
status "To Add" for every non-archived, non-fork repository whose URL the
database does not reference yet.`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	if err := rt.requireStore(); err != nil {
		return err
	}
	ctx := cmd.Context()

	repos, err := rt.source.ListRepos(ctx)
	if err != nil {
		return fmt.Errorf("list repositories: %w", err)
	}

	// Every existing row counts for dedup, whatever its status.
	existing, err := rt.store.Query(ctx, project.RecordFilter{})
	if err != nil {
		return fmt.Errorf("query existing records: %w", err)
	}
	existingURLs := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		if rec.Record.URL != "" {
			existingURLs[strings.ToLower(rec.Record.URL)] = struct{}{}
		}
	}

	created := 0
	for _, r := range repos {
		if r.Archived || r.Fork {
			continue
		}
		if strings.EqualFold(r.Name, rt.cfg.GitHub.Owner) {
			continue
		}
		if _, ok := existingURLs[strings.ToLower(r.HTMLURL)]; ok {
			continue
		}
		err := rt.store.Upsert(ctx, r.Name, project.Fields{
			URL:      r.HTMLURL,
			Summary:  r.Description,
			Language: r.Language,
			Year:     r.PushedYear(),
			Status:   project.StatusToAdd,
		})
		if err != nil {
			return fmt.Errorf("create record for %s: %w", r.Name, err)
		}
		rt.logger.Info("record created", zap.String("repo", r.Name))
		created++
	}

	rt.logger.Info("sync finished", zap.Int("created", created))
	return nil
}
