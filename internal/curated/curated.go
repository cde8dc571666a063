// Package curated loads the hand-maintained project list: a YAML file when
// one is configured, the embedded default list otherwise.
package curated

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/itakello/projectsync/internal/project"
)

//go:embed projects.yaml
var embeddedList []byte

type listFile struct {
	Projects []entry `yaml:"projects"`
}

type entry struct {
	Title    string   `yaml:"title"`
	Summary  string   `yaml:"summary"`
	URL      string   `yaml:"url"`
	Tags     []string `yaml:"tags"`
	Year     string   `yaml:"year"`
	Featured bool     `yaml:"featured"`
}

// Load returns the curated records. With an empty path the embedded list is
// used; with a path the file must exist and parse.
func Load(path string) ([]project.Record, error) {
	data := embeddedList
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read curated list: %w", err)
		}
	}
	return parse(data)
}

func parse(data []byte) ([]project.Record, error) {
	var file listFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse curated list: %w", err)
	}

	records := make([]project.Record, 0, len(file.Projects))
	for i, e := range file.Projects {
		if e.Title == "" {
			return nil, fmt.Errorf("curated entry %d: title is required", i)
		}
		records = append(records, project.Record{
			Title:    e.Title,
			Summary:  e.Summary,
			URL:      e.URL,
			Tags:     e.Tags,
			Year:     e.Year,
			Featured: e.Featured,
		})
	}
	return records, nil
}
