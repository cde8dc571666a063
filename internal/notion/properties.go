package notion

import (
	"strconv"

	"github.com/itakello/projectsync/internal/project"
)

// queryResponse is the cursor-paginated shape of a database query.
type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type page struct {
	ID         string         `json:"id"`
	Properties pageProperties `json:"properties"`
}

type pageProperties struct {
	Name struct {
		Title []richText `json:"title"`
	} `json:"Name"`
	URL struct {
		URL *string `json:"url"`
	} `json:"URL"`
	Summary struct {
		RichText []richText `json:"rich_text"`
	} `json:"Summary"`
	Tags struct {
		MultiSelect []namedOption `json:"multi_select"`
	} `json:"Tags"`
	Language struct {
		Select *namedOption `json:"select"`
	} `json:"Language"`
	Year struct {
		Number *float64 `json:"number"`
	} `json:"Year"`
	Status struct {
		Status *namedOption `json:"status"`
	} `json:"Status"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type namedOption struct {
	Name string `json:"name"`
}

func joinRichText(parts []richText) string {
	var out string
	for _, p := range parts {
		out += p.PlainText
	}
	return out
}

func (p page) toRecord() project.RemoteRecord {
	rec := project.Record{
		Title:   joinRichText(p.Properties.Name.Title),
		Summary: joinRichText(p.Properties.Summary.RichText),
	}
	if p.Properties.URL.URL != nil {
		rec.URL = *p.Properties.URL.URL
	}
	for _, tag := range p.Properties.Tags.MultiSelect {
		rec.Tags = append(rec.Tags, tag.Name)
	}
	if p.Properties.Language.Select != nil {
		rec.Language = p.Properties.Language.Select.Name
	}
	if p.Properties.Year.Number != nil {
		rec.Year = strconv.Itoa(int(*p.Properties.Year.Number))
	}

	out := project.RemoteRecord{ID: p.ID, Record: rec}
	if p.Properties.Status.Status != nil {
		out.Status = project.Status(p.Properties.Status.Status.Name)
	}
	return out
}

// buildProperties translates sparse fields into the database's property map.
// Zero-valued fields are left out entirely so existing values survive a
// partial update. An empty title omits the Name property (used by Update).
func buildProperties(title string, fields project.Fields) map[string]any {
	props := map[string]any{}
	if title != "" {
		props["Name"] = map[string]any{
			"title": []map[string]any{textContent(title)},
		}
	}
	if fields.URL != "" {
		props["URL"] = map[string]any{"url": fields.URL}
	}
	if fields.Summary != "" {
		props["Summary"] = map[string]any{
			"rich_text": []map[string]any{textContent(fields.Summary)},
		}
	}
	if len(fields.Tags) > 0 {
		tags := make([]map[string]any, 0, len(fields.Tags))
		for _, t := range fields.Tags {
			tags = append(tags, map[string]any{"name": t})
		}
		props["Tags"] = map[string]any{"multi_select": tags}
	}
	if fields.Language != "" {
		props["Language"] = map[string]any{
			"select": map[string]any{"name": fields.Language},
		}
	}
	if fields.Year > 0 {
		props["Year"] = map[string]any{"number": fields.Year}
	}
	if fields.Status != "" {
		props["Status"] = map[string]any{
			"status": map[string]any{"name": string(fields.Status)},
		}
	}
	return props
}

func textContent(s string) map[string]any {
	return map[string]any{
		"type": "text",
		"text": map[string]any{"content": s},
	}
}
