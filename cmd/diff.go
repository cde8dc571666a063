package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itakello/projectsync/internal/api"
	"github.com/itakello/projectsync/internal/curated"
	"github.com/itakello/projectsync/internal/project"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Report repositories the showcase does not list yet",
		Long: `Prints a JSON report of live repositories whose URL neither the Notion
database nor the curated list references.`,
		RunE: runDiff,
	}
}

func runDiff(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	ctx := cmd.Context()

	repos, err := rt.source.ListRepos(ctx)
	if err != nil {
		return fmt.Errorf("list repositories: %w", err)
	}

	base, err := curated.Load(rt.cfg.Curated.Path)
	if err != nil {
		return fmt.Errorf("load curated list: %w", err)
	}
	if rt.store.Enabled() {
		remote, err := rt.store.Query(ctx, project.RecordFilter{
			Statuses:        []project.Status{project.StatusAdded},
			IncludeNoStatus: true,
		})
		if err != nil {
			return fmt.Errorf("query records: %w", err)
		}
		if len(remote) > 0 {
			base = make([]project.Record, 0, len(remote))
			for _, rec := range remote {
				base = append(base, rec.Record)
			}
		}
	}

	report := api.BuildDiff(base, repos, rt.cfg.GitHub.Owner)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
