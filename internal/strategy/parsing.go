package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
)

// planDoc is the planner's required output document.
type planDoc struct {
	ExtendedStrategy string          `json:"extended_strategy"`
	Candidates       []planCandidate `json:"candidates"`
}

// planCandidate is one recommended staging location as generated.
type planCandidate struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	DriveMinutes float64 `json:"drive_minutes"`
	EstEarnings  float64 `json:"est_earnings"`
	Rationale    string  `json:"rationale"`
}

// planLimits bounds an accepted plan. Values come from config.
type planLimits struct {
	MaxCandidates      int
	MaxNameLength      int
	MaxRationaleLength int
}

// stripFences removes a markdown code fence wrapper if the whole payload is
// fenced. Models add them even when told not to.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the fence line.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first == "" || first == "json" {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parsePlan strictly decodes and validates planner output. Unknown fields,
// trailing content, empty or oversized candidate lists, out-of-range
// coordinates, and unbounded text are all rejected; the caller's policy is
// one retry of the generation, never acceptance of a malformed plan.
func parsePlan(provider, text string, limits planLimits) (*planDoc, error) {
	invalid := func(msg string, err error) error {
		return apperrors.NewProviderError(provider, apperrors.ClassInvalidOutput, msg, err)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(stripFences(text))))
	dec.DisallowUnknownFields()
	var doc planDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, invalid("plan is not valid JSON", err)
	}
	if dec.More() {
		return nil, invalid("trailing content after plan document", nil)
	}

	if len(doc.Candidates) == 0 {
		return nil, invalid("plan has no candidates", nil)
	}
	if len(doc.Candidates) > limits.MaxCandidates {
		return nil, invalid(fmt.Sprintf("plan has %d candidates, max %d", len(doc.Candidates), limits.MaxCandidates), nil)
	}

	for i, c := range doc.Candidates {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, invalid(fmt.Sprintf("candidate %d has no name", i), nil)
		}
		if len([]rune(name)) > limits.MaxNameLength {
			return nil, invalid(fmt.Sprintf("candidate %d name exceeds %d chars", i, limits.MaxNameLength), nil)
		}
		if c.Latitude < -90 || c.Latitude > 90 {
			return nil, invalid(fmt.Sprintf("candidate %d latitude %v out of range", i, c.Latitude), nil)
		}
		if c.Longitude < -180 || c.Longitude > 180 {
			return nil, invalid(fmt.Sprintf("candidate %d longitude %v out of range", i, c.Longitude), nil)
		}
		if c.DriveMinutes < 0 {
			return nil, invalid(fmt.Sprintf("candidate %d has negative drive time", i), nil)
		}
		if c.EstEarnings < 0 {
			return nil, invalid(fmt.Sprintf("candidate %d has negative earnings", i), nil)
		}
		doc.Candidates[i].Name = name
		// Rationale is advisory prose: over-length text is bounded, not fatal.
		doc.Candidates[i].Rationale = apperrors.Truncate(strings.TrimSpace(c.Rationale), limits.MaxRationaleLength)
	}
	return &doc, nil
}
