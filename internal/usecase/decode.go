package usecase

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"asamanthinks/internal/domain"
	"asamanthinks/internal/integrations/prompttools"
)

type rawStateRecord struct {
	PrimaryState    string   `json:"primary_state"`
	Intensity       *float64 `json:"intensity"`
	SecondaryStates []string `json:"secondary_states"`
	ChaosDetected   bool     `json:"chaos_detected"`
	OppositeAction  string   `json:"opposite_action"`
	MusicPrompt     string   `json:"music_prompt"`
}

// decodeStateRecord turns a return_data value into a StateRecord. The value
// may be a JSON string holding the object or the object itself. When it
// cannot be decoded, or names an unknown primary state, the default record
// is returned with ok=false.
func decodeStateRecord(resp prompttools.ReturnDataResponse) (domain.StateRecord, bool) {
	body := []byte(stripFences(resp.Text()))
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.DefaultStateRecord(), false
	}

	var raw rawStateRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.DefaultStateRecord(), false
	}
	primary, err := domain.ParseCategory(raw.PrimaryState)
	if err != nil {
		return domain.DefaultStateRecord(), false
	}

	rec := domain.StateRecord{
		PrimaryState:    primary,
		Intensity:       clampIntensity(raw.Intensity),
		SecondaryStates: []domain.Category{},
		ChaosDetected:   raw.ChaosDetected,
		OppositeAction:  strings.TrimSpace(raw.OppositeAction),
		MusicPrompt:     strings.TrimSpace(raw.MusicPrompt),
	}
	for _, s := range raw.SecondaryStates {
		if c, err := domain.ParseCategory(s); err == nil {
			rec.SecondaryStates = append(rec.SecondaryStates, c)
		}
	}
	return rec, true
}

func clampIntensity(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return domain.DefaultStateRecord().Intensity
	}
	// Bound the float before converting; int() of an out-of-range value is
	// implementation defined.
	if *v >= domain.MaxIntensity {
		return domain.MaxIntensity
	}
	if *v <= domain.MinIntensity {
		return domain.MinIntensity
	}
	return int(*v + 0.5)
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
