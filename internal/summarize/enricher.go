// Package summarize derives short summaries and topic tags for repository
// records: a language-model stage when configured, and a deterministic
// extraction fallback that always produces something displayable.
package summarize

import (
	"context"

	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/project"
	"github.com/itakello/projectsync/internal/telemetry"
)

// Input carries everything the enricher may draw from. Readme is only
// meaningful when HasReadme is true; an empty fetched readme and a missing
// readme behave differently.
type Input struct {
	Title       string
	Readme      string
	HasReadme   bool
	Description string
	Topics      []string
}

// Enricher composes the language-model stage with the heuristic fallback.
type Enricher struct {
	llm    project.Summarizer
	logger *zap.Logger
}

// NewEnricher builds an Enricher. llm may be nil, in which case only the
// fallback runs.
func NewEnricher(llm project.Summarizer, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{llm: llm, logger: logger}
}

// Enrich returns the record's summary and tags. The summary is never empty
// when readme text or a description is available; tags fall back from the
// model's answer to the repository's topic labels, or stay absent.
func (e *Enricher) Enrich(ctx context.Context, in Input) (string, []string) {
	var fromModel project.Summary
	var modelOK bool
	if e.llm != nil && in.HasReadme {
		fromModel, modelOK = e.llm.Summarize(ctx, in.Title, in.Readme)
	}

	summary := fromModel.Summary
	if !modelOK || summary == "" {
		summary = e.fallbackSummary(in)
	}

	tags := fromModel.Tags
	if (!modelOK || len(tags) == 0) && len(in.Topics) > 0 {
		tags = in.Topics
	}

	return summary, tags
}

func (e *Enricher) fallbackSummary(in Input) string {
	if !in.HasReadme {
		return Truncate(in.Description)
	}
	telemetry.ObserveSummarizer("heuristic", "used")
	return HeuristicSummary(in.Readme, in.Description)
}
