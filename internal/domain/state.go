package domain

import (
	"fmt"
	"strings"
)

// Category is one of the seven fixed states a check-in is classified into.
type Category string

const (
	CategoryPhysical Category = "physical"
	CategoryEtheric  Category = "etheric"
	CategoryAstral   Category = "astral"
	CategoryMental   Category = "mental"
	CategoryCausal   Category = "causal"
	CategoryBuddhic  Category = "buddhic"
	CategoryAtmic    Category = "atmic"
)

const (
	MinIntensity = 1
	MaxIntensity = 10
)

// CategoryInfo is the display metadata attached to a Category.
type CategoryInfo struct {
	Key         Category `json:"key"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Note        string   `json:"note"`
	Description string   `json:"description"`
}

var categories = []CategoryInfo{
	{Key: CategoryPhysical, Name: "Physical", Color: "#FF0000", Note: "C", Description: "Body, survival"},
	{Key: CategoryEtheric, Name: "Etheric", Color: "#FF7F00", Note: "D", Description: "Energy, vitality"},
	{Key: CategoryAstral, Name: "Astral", Color: "#FFFF00", Note: "E", Description: "Emotions, dreams"},
	{Key: CategoryMental, Name: "Mental", Color: "#00FF00", Note: "F", Description: "Logic, thinking"},
	{Key: CategoryCausal, Name: "Causal", Color: "#0000FF", Note: "G", Description: "Life patterns, meaning"},
	{Key: CategoryBuddhic, Name: "Buddhic", Color: "#4B0082", Note: "A", Description: "Intuition, connection"},
	{Key: CategoryAtmic, Name: "Atmic", Color: "#9400D3", Note: "B", Description: "Transcendence, unity"},
}

// Categories returns the seven categories in their canonical order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory maps a raw key onto a Category. Matching ignores case and
// surrounding whitespace.
func ParseCategory(raw string) (Category, error) {
	key := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range categories {
		if c.Key == key {
			return key, nil
		}
	}
	return "", fmt.Errorf("domain: unknown category %q", raw)
}

// Info returns the display metadata for c. The zero value is returned for
// keys outside the taxonomy.
func (c Category) Info() CategoryInfo {
	for _, info := range categories {
		if info.Key == c {
			return info
		}
	}
	return CategoryInfo{}
}

// SelectionText is the check-in text sent when a category is picked
// directly instead of described.
func (info CategoryInfo) SelectionText() string {
	return fmt.Sprintf("I'm feeling %s - %s", strings.ToLower(info.Name), info.Description)
}

// StateRecord is the structured result of classifying one check-in.
type StateRecord struct {
	PrimaryState    Category   `json:"primary_state"`
	Intensity       int        `json:"intensity"`
	SecondaryStates []Category `json:"secondary_states"`
	ChaosDetected   bool       `json:"chaos_detected"`
	OppositeAction  string     `json:"opposite_action"`
	MusicPrompt     string     `json:"music_prompt"`
}

// DefaultStateRecord is substituted whenever a classification response
// cannot be turned into a valid StateRecord.
func DefaultStateRecord() StateRecord {
	return StateRecord{
		PrimaryState:    CategoryMental,
		Intensity:       5,
		SecondaryStates: []Category{},
		ChaosDetected:   false,
		OppositeAction:  "Take a moment to breathe and reflect",
		MusicPrompt:     "Calming ambient music for mental clarity",
	}
}

// Clone returns a deep copy so callers cannot mutate a stored record.
func (r StateRecord) Clone() StateRecord {
	out := r
	out.SecondaryStates = append([]Category{}, r.SecondaryStates...)
	return out
}
