// Package prompts holds the prompt templates sent to the remote prompt
// service. The templates live in prompts.yaml and are compiled once.
package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"asamanthinks/internal/domain"
)

//go:embed prompts.yaml
var defaultYAML []byte

type file struct {
	Version          int               `yaml:"version"`
	Classification   string            `yaml:"classification"`
	Music            string            `yaml:"music"`
	Transcription    string            `yaml:"transcription"`
	CategoryGuidance map[string]string `yaml:"category_guidance"`
}

// Set is a compiled group of templates.
type Set struct {
	classification *template.Template
	music          *template.Template
	transcription  *template.Template
	guidance       []categoryGuidance
}

type categoryGuidance struct {
	Key         domain.Category
	Description string
}

var funcs = template.FuncMap{
	"ref": func(name string) string { return "{" + name + "}" },
}

// Default returns the embedded template set.
func Default() (*Set, error) {
	return Parse(defaultYAML)
}

// Parse compiles a YAML template document.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("prompts: parse yaml: %w", err)
	}

	var missing []string
	if strings.TrimSpace(f.Classification) == "" {
		missing = append(missing, "classification")
	}
	if strings.TrimSpace(f.Music) == "" {
		missing = append(missing, "music")
	}
	if strings.TrimSpace(f.Transcription) == "" {
		missing = append(missing, "transcription")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("prompts: missing templates: %s", strings.Join(missing, ", "))
	}

	s := &Set{}
	var err error
	if s.classification, err = template.New("classification").Funcs(funcs).Option("missingkey=error").Parse(f.Classification); err != nil {
		return nil, fmt.Errorf("prompts: compile classification: %w", err)
	}
	if s.music, err = template.New("music").Funcs(funcs).Option("missingkey=error").Parse(f.Music); err != nil {
		return nil, fmt.Errorf("prompts: compile music: %w", err)
	}
	if s.transcription, err = template.New("transcription").Funcs(funcs).Option("missingkey=error").Parse(f.Transcription); err != nil {
		return nil, fmt.Errorf("prompts: compile transcription: %w", err)
	}

	for _, c := range domain.Categories() {
		desc := strings.TrimSpace(f.CategoryGuidance[string(c.Key)])
		if desc == "" {
			desc = c.Description
		}
		s.guidance = append(s.guidance, categoryGuidance{Key: c.Key, Description: desc})
	}
	return s, nil
}

// Classification renders the prompt that classifies the stored input object.
func (s *Set) Classification(inputObject string) (string, error) {
	if strings.TrimSpace(inputObject) == "" {
		return "", errors.New("prompts: input object must not be empty")
	}
	return render(s.classification, struct {
		InputObject string
		Categories  []categoryGuidance
	}{InputObject: inputObject, Categories: s.guidance})
}

// Music renders the music generation prompt for rec.
func (s *Set) Music(rec domain.StateRecord) (string, error) {
	return render(s.music, struct {
		State       domain.Category
		Intensity   int
		MusicPrompt string
	}{State: rec.PrimaryState, Intensity: rec.Intensity, MusicPrompt: rec.MusicPrompt})
}

// Transcription renders the prompt that transcribes the stored audio object.
func (s *Set) Transcription(inputObject string) (string, error) {
	if strings.TrimSpace(inputObject) == "" {
		return "", errors.New("prompts: input object must not be empty")
	}
	return render(s.transcription, struct{ InputObject string }{InputObject: inputObject})
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}
