package strategy

import (
	"encoding/json"
	"strings"
)

// severeConditions are weather terms that make repositioning advice unsafe.
// Matching is substring-based over the snapshot's condition and description
// so "Tornado Warning" and "flash flooding" both trip the gate.
var severeConditions = []string{
	"tornado",
	"blizzard",
	"ice storm",
	"flood",
	"hurricane",
}

// snapshotWeather is the subset of the snapshot weather document the gate
// inspects.
type snapshotWeather struct {
	Condition   string `json:"condition"`
	Description string `json:"description"`
}

// safetyCheck inspects the snapshot's weather and returns the matched severe
// condition when the run must be rejected. Unparseable weather never blocks a
// run; the gate only acts on positive evidence.
func safetyCheck(weatherJSON string) (string, bool) {
	if weatherJSON == "" {
		return "", false
	}
	var w snapshotWeather
	if err := json.Unmarshal([]byte(weatherJSON), &w); err != nil {
		return "", false
	}
	haystack := strings.ToLower(w.Condition + " " + w.Description)
	for _, cond := range severeConditions {
		if strings.Contains(haystack, cond) {
			return cond, true
		}
	}
	return "", false
}
