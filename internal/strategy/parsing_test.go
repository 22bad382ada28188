package strategy

import (
	"strings"
	"testing"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
)

var testLimits = planLimits{MaxCandidates: 8, MaxNameLength: 120, MaxRationaleLength: 500}

const validPlan = `{
	"extended_strategy": "Work the stadium corridor until the game lets out.",
	"candidates": [
		{"name": "Arena North Lot", "category": "venue", "latitude": 32.79, "longitude": -96.81,
		 "drive_minutes": 8, "est_earnings": 14.5, "rationale": "Concert ends at 10pm."},
		{"name": "Airport Queue", "category": "airport", "latitude": 32.89, "longitude": -97.03,
		 "drive_minutes": 22, "est_earnings": 31.0, "rationale": "Bank of arrivals."}
	]
}`

func TestStripFences(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"not a fence", "use ``backticks`` here", "use ``backticks`` here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePlanValid(t *testing.T) {
	doc, err := parsePlan("openai", validPlan, testLimits)
	if err != nil {
		t.Fatalf("parsePlan: %v", err)
	}
	if len(doc.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(doc.Candidates))
	}
	if doc.Candidates[0].Name != "Arena North Lot" {
		t.Errorf("first candidate = %q", doc.Candidates[0].Name)
	}
	if doc.ExtendedStrategy == "" {
		t.Error("extended strategy lost")
	}
}

func TestParsePlanFenced(t *testing.T) {
	fenced := "```json\n" + validPlan + "\n```"
	if _, err := parsePlan("openai", fenced, testLimits); err != nil {
		t.Fatalf("parsePlan fenced: %v", err)
	}
}

func TestParsePlanRejections(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "here's your plan:"},
		{"unknown field", `{"candidates": [{"name": "A", "latitude": 1, "longitude": 1, "mystery": true}]}`},
		{"trailing content", validPlan + ` {"another": 1}`},
		{"no candidates", `{"extended_strategy": "x", "candidates": []}`},
		{"missing name", `{"candidates": [{"name": "  ", "latitude": 1, "longitude": 1}]}`},
		{"latitude range", `{"candidates": [{"name": "A", "latitude": 94.2, "longitude": 1}]}`},
		{"longitude range", `{"candidates": [{"name": "A", "latitude": 1, "longitude": -190}]}`},
		{"negative drive", `{"candidates": [{"name": "A", "latitude": 1, "longitude": 1, "drive_minutes": -5}]}`},
		{"negative earnings", `{"candidates": [{"name": "A", "latitude": 1, "longitude": 1, "est_earnings": -2}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePlan("openai", tt.text, testLimits)
			if err == nil {
				t.Fatal("want error")
			}
			if !apperrors.IsInvalidOutput(err) {
				t.Errorf("error class = %s, want invalid_output", apperrors.ClassOf(err))
			}
		})
	}
}

func TestParsePlanCandidateCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"candidates": [`)
	for i := 0; i < 3; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"name": "A", "latitude": 1, "longitude": 1}`)
	}
	sb.WriteString(`]}`)

	limits := testLimits
	limits.MaxCandidates = 2
	if _, err := parsePlan("openai", sb.String(), limits); err == nil {
		t.Fatal("want error above candidate cap")
	}
}

func TestParsePlanLongNameRejectedLongRationaleTruncated(t *testing.T) {
	limits := planLimits{MaxCandidates: 8, MaxNameLength: 10, MaxRationaleLength: 20}

	long := `{"candidates": [{"name": "` + strings.Repeat("n", 11) + `", "latitude": 1, "longitude": 1}]}`
	if _, err := parsePlan("openai", long, limits); err == nil {
		t.Fatal("want error for over-length name")
	}

	rationale := `{"candidates": [{"name": "A", "latitude": 1, "longitude": 1, "rationale": "` +
		strings.Repeat("r", 50) + `"}]}`
	doc, err := parsePlan("openai", rationale, limits)
	if err != nil {
		t.Fatalf("parsePlan: %v", err)
	}
	if got := len([]rune(doc.Candidates[0].Rationale)); got > 20 {
		t.Errorf("rationale length = %d, want <= 20", got)
	}
}
