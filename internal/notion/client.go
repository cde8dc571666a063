// Package notion implements the remote structured database used as the
// source of truth for showcase records.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/project"
	"github.com/itakello/projectsync/internal/telemetry"
)

const (
	notionVersion = "2022-06-28"
	// queryPageSize is the API's maximum page size; fewer round trips per
	// full listing.
	queryPageSize = 100
)

// Config controls client behavior. Token and DatabaseID must both be set
// for the client to do anything; otherwise every operation is a no-op.
type Config struct {
	Token      string
	DatabaseID string
	APIBase    string
	Timeout    time.Duration
}

// Client talks to the remote database's REST API. It implements
// project.RecordStore.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.notion.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c.cfg.Token != "" && c.cfg.DatabaseID != ""
}

// Query returns records matching the filter, following cursor pagination.
// Returns nil without error when the store is not configured.
func (c *Client) Query(ctx context.Context, filter project.RecordFilter) ([]project.RemoteRecord, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var records []project.RemoteRecord
	cursor := ""
	for {
		page, next, err := c.queryPage(ctx, filter, cursor)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)
		if next == "" {
			return records, nil
		}
		cursor = next
	}
}

// Upsert finds a record by URL, or exact title when the URL is absent or
// unmatched, and updates the supplied fields; otherwise it creates a new
// record. No-op when the store is not configured.
func (c *Client) Upsert(ctx context.Context, title string, fields project.Fields) error {
	if !c.Enabled() {
		telemetry.ObserveUpsert("skip")
		return nil
	}

	match, err := c.findByIdentity(ctx, title, fields.URL)
	if err != nil {
		return err
	}

	props := buildProperties(title, fields)
	if match != "" {
		if err := c.patchPage(ctx, match, props); err != nil {
			return err
		}
		telemetry.ObserveUpsert("update")
		c.logger.Debug("record updated", zap.String("title", title), zap.String("page_id", match))
		return nil
	}

	if err := c.createPage(ctx, props); err != nil {
		return err
	}
	telemetry.ObserveUpsert("create")
	c.logger.Debug("record created", zap.String("title", title))
	return nil
}

// Update writes the supplied fields to an existing record by page identity.
func (c *Client) Update(ctx context.Context, id string, fields project.Fields) error {
	if !c.Enabled() {
		telemetry.ObserveUpsert("skip")
		return nil
	}
	if err := c.patchPage(ctx, id, buildProperties("", fields)); err != nil {
		return err
	}
	telemetry.ObserveUpsert("update")
	return nil
}

func (c *Client) findByIdentity(ctx context.Context, title, url string) (pageID string, err error) {
	conditions := make([]map[string]any, 0, 2)
	if url != "" {
		conditions = append(conditions, map[string]any{
			"property": "URL",
			"url":      map[string]any{"equals": url},
		})
	}
	conditions = append(conditions, map[string]any{
		"property": "Name",
		"title":    map[string]any{"equals": title},
	})

	body := map[string]any{
		"filter":    map[string]any{"or": conditions},
		"page_size": 1,
	}
	resp, err := c.post(ctx, fmt.Sprintf("/v1/databases/%s/query", c.cfg.DatabaseID), body, "query")
	if err != nil {
		return "", fmt.Errorf("lookup record: %w", err)
	}

	var decoded queryResponse
	if err := json.Unmarshal(resp, &decoded); err != nil {
		return "", fmt.Errorf("decode lookup response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return "", nil
	}
	return decoded.Results[0].ID, nil
}

func (c *Client) queryPage(
	ctx context.Context,
	filter project.RecordFilter,
	cursor string,
) ([]project.RemoteRecord, string, error) {
	body := map[string]any{"page_size": queryPageSize}
	if cursor != "" {
		body["start_cursor"] = cursor
	}
	if f := statusFilter(filter); f != nil {
		body["filter"] = f
	}

	resp, err := c.post(ctx, fmt.Sprintf("/v1/databases/%s/query", c.cfg.DatabaseID), body, "query")
	if err != nil {
		return nil, "", fmt.Errorf("query records: %w", err)
	}

	var decoded queryResponse
	if err := json.Unmarshal(resp, &decoded); err != nil {
		return nil, "", fmt.Errorf("decode query response: %w", err)
	}

	records := make([]project.RemoteRecord, 0, len(decoded.Results))
	for _, page := range decoded.Results {
		records = append(records, page.toRecord())
	}
	if decoded.HasMore && decoded.NextCursor != "" {
		return records, decoded.NextCursor, nil
	}
	return records, "", nil
}

// statusFilter mirrors the database's status-field filter: an or-group of
// equals conditions, optionally admitting rows with no status at all.
func statusFilter(filter project.RecordFilter) map[string]any {
	conditions := make([]map[string]any, 0, len(filter.Statuses)+1)
	for _, s := range filter.Statuses {
		conditions = append(conditions, map[string]any{
			"property": "Status",
			"status":   map[string]any{"equals": string(s)},
		})
	}
	if filter.IncludeNoStatus {
		conditions = append(conditions, map[string]any{
			"property": "Status",
			"status":   map[string]any{"is_empty": true},
		})
	}
	if len(conditions) == 0 {
		return nil
	}
	return map[string]any{
		"and": []map[string]any{
			{"or": conditions},
		},
	}
}

func (c *Client) createPage(ctx context.Context, props map[string]any) error {
	body := map[string]any{
		"parent":     map[string]any{"database_id": c.cfg.DatabaseID},
		"properties": props,
	}
	if _, err := c.post(ctx, "/v1/pages", body, "create_page"); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

func (c *Client) patchPage(ctx context.Context, pageID string, props map[string]any) error {
	body := map[string]any{"properties": props}
	if _, err := c.send(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, "update_page"); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, operation string) ([]byte, error) {
	return c.send(ctx, http.MethodPost, path, body, operation)
}

func (c *Client) send(ctx context.Context, method, path string, body any, operation string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBase+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.ObserveUpstreamRequest("notion", operation, 0, time.Since(start))
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	telemetry.ObserveUpstreamRequest("notion", operation, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote database error (status %d): %s", resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
