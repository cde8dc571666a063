package summarize

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/project"
	"github.com/itakello/projectsync/internal/telemetry"
)

const llmSystemPrompt = `You summarize repository READMEs into a crisp 1-2 sentence description and 3-6 tags.
Return JSON with keys: summary (string), tags (string[]). Tags should be short proper nouns (e.g., React, Next.js, Python, LLM).
Return valid JSON only, no markdown fencing or explanation.`

// LLMConfig controls the language-model summarization stage.
type LLMConfig struct {
	APIKey         string
	Model          string
	MaxReadmeChars int
	MaxTags        int
	Timeout        time.Duration
}

// LLMClient implements project.Summarizer against the Anthropic API. Every
// failure mode is reported as "no result"; the caller falls back.
type LLMClient struct {
	api     *anthropic.Client
	cfg     LLMConfig
	enabled bool
	logger  *zap.Logger
}

// NewLLMClient builds an LLMClient. Without an API key the client stays
// disabled and always reports no result.
func NewLLMClient(cfg LLMConfig, logger *zap.Logger) *LLMClient {
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxReadmeChars <= 0 {
		cfg.MaxReadmeChars = 6000
	}
	if cfg.MaxTags <= 0 {
		cfg.MaxTags = 8
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &LLMClient{cfg: cfg, logger: logger}
	if cfg.APIKey != "" {
		api := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
		client.api = &api
		client.enabled = true
	}
	return client
}

type llmResult struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// Summarize asks the model for a structured summary of the readme. ok is
// false when the stage is disabled or anything about the call fails.
func (c *LLMClient) Summarize(ctx context.Context, title, readme string) (project.Summary, bool) {
	if !c.enabled || readme == "" {
		telemetry.ObserveSummarizer("llm", "skip")
		return project.Summary{}, false
	}

	readme = cutBytes(readme, c.cfg.MaxReadmeChars)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("Title: ")
	sb.WriteString(title)
	sb.WriteString("\nREADME:\n")
	sb.WriteString(readme)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: llmSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(sb.String())),
		},
	})
	if err != nil {
		c.logger.Debug("summarization call failed", zap.Error(err))
		telemetry.ObserveSummarizer("llm", "error")
		return project.Summary{}, false
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		telemetry.ObserveSummarizer("llm", "error")
		return project.Summary{}, false
	}

	var parsed llmResult
	if err := json.Unmarshal([]byte(stripFences(text)), &parsed); err != nil {
		c.logger.Debug("summarization response was not JSON", zap.Error(err))
		telemetry.ObserveSummarizer("llm", "error")
		return project.Summary{}, false
	}
	if parsed.Summary == "" && len(parsed.Tags) == 0 {
		telemetry.ObserveSummarizer("llm", "error")
		return project.Summary{}, false
	}

	if len(parsed.Tags) > c.cfg.MaxTags {
		parsed.Tags = parsed.Tags[:c.cfg.MaxTags]
	}
	telemetry.ObserveSummarizer("llm", "ok")
	return project.Summary{Summary: Truncate(parsed.Summary), Tags: parsed.Tags}, true
}

// stripFences removes a markdown code fence around a JSON payload, which
// models emit despite being told not to.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) > 1 {
		text = lines[1]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
