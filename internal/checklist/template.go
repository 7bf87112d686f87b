package checklist

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template defines the checklist layout used to seed a fresh draft.
type Template struct {
	Sections []TemplateSection `yaml:"sections"`
}

// TemplateSection is one section definition in the template file.
type TemplateSection struct {
	ID    string         `yaml:"id"`
	Title string         `yaml:"title"`
	Items []TemplateItem `yaml:"items"`
}

// TemplateItem is one item definition in the template file.
type TemplateItem struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// LoadTemplate reads and validates a checklist template from a YAML file.
func LoadTemplate(path string) (Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read checklist template: %w", err)
	}
	return ParseTemplate(raw)
}

// ParseTemplate parses template YAML and performs basic structural checks.
func ParseTemplate(raw []byte) (Template, error) {
	var tpl Template
	if err := yaml.Unmarshal(raw, &tpl); err != nil {
		return Template{}, fmt.Errorf("parse checklist template: %w", err)
	}
	if err := tpl.validate(); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

func (t Template) validate() error {
	if len(t.Sections) == 0 {
		return fmt.Errorf("checklist template has no sections")
	}
	seen := map[string]bool{}
	for _, section := range t.Sections {
		if strings.TrimSpace(section.ID) == "" {
			return fmt.Errorf("checklist template: section with empty id")
		}
		if strings.TrimSpace(section.Title) == "" {
			return fmt.Errorf("checklist template: section %s has no title", section.ID)
		}
		if len(section.Items) == 0 {
			return fmt.Errorf("checklist template: section %s has no items", section.ID)
		}
		for _, item := range section.Items {
			if strings.TrimSpace(item.ID) == "" {
				return fmt.Errorf("checklist template: section %s has item with empty id", section.ID)
			}
			key := section.ID + "/" + item.ID
			if seen[key] {
				return fmt.Errorf("checklist template: duplicate item %s", key)
			}
			seen[key] = true
		}
	}
	return nil
}

// NewDraft builds the default draft for a fresh run: every item unset with
// empty notes and no photos.
func (t Template) NewDraft() Draft {
	sections := make([]Section, 0, len(t.Sections))
	for _, ts := range t.Sections {
		items := make([]CheckItem, 0, len(ts.Items))
		for _, ti := range ts.Items {
			items = append(items, CheckItem{
				ID:     ti.ID,
				Label:  ti.Label,
				State:  StateUnset,
				Photos: []Photo{},
			})
		}
		sections = append(sections, Section{ID: ts.ID, Title: ts.Title, Items: items})
	}
	return Draft{Sections: sections}
}
