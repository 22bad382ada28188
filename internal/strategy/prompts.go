package strategy

import (
	"fmt"
	"strings"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/store"
)

// Research sub-source names. They double as the keys in degradation logs.
const (
	sourceEvents   = "events"
	sourceNews     = "news"
	sourceTraffic  = "traffic"
	sourceClosures = "closures"
)

const researchSystemPrompt = `You are a local research assistant for rideshare drivers.
Answer with a single JSON array and nothing else. Use [] when you have nothing
reliable. Do not invent specifics you are not confident about.`

const strategistSystemPrompt = `You are a rideshare driving strategist. Given a driver's
current position, time, weather, and a briefing of local events, news, traffic
and closures, write tactical advice for the next 30-60 minutes: where demand
will be, what to avoid, and the single best move right now. Be concrete and
brief. Plain text, no markdown.`

const plannerSystemPrompt = `You are a rideshare staging planner. Produce a JSON object with
exactly these fields:
  "extended_strategy": a paragraph covering the next 2-4 hours
  "candidates": an array of staging locations, best first, each with
    "name", "category", "latitude", "longitude",
    "drive_minutes" (from the driver's position),
    "est_earnings" (expected dollars for the first trip from there),
    "rationale" (one or two sentences)
Respond with the JSON object only.`

// researchPrompts maps each sub-source to its query template. The snapshot's
// formatted address and local time are substituted in.
var researchPrompts = map[string]string{
	sourceEvents: `List events near %s today (%s, local time %s) that affect rideshare demand.
Each array element: {"title","venue","address","starts_at","ends_at","end_date","end_time","summary"}.
Use RFC 3339 or "YYYY-MM-DD HH:MM" timestamps; omit fields you do not know.`,
	sourceNews: `List local news from the last few days near %s (%s, local time %s) relevant to traffic or crowds.
Each array element: {"title","source","url","published_at","summary"}.`,
	sourceTraffic: `List current traffic conditions and incidents near %s (%s, local time %s).
Each array element: {"road","condition","severity","summary"}.`,
	sourceClosures: `List road closures in effect near %s (%s, local time %s).
Each array element: {"road","reason","until","summary"}.`,
}

func researchPrompt(source string, snap *store.Snapshot) string {
	return fmt.Sprintf(researchPrompts[source], snap.FormattedAddress, snap.DayOfWeek, snap.LocalTime)
}

func strategistPrompt(snap *store.Snapshot, b *store.BriefingRow) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Driver position: %s (%.5f, %.5f)\n", snap.FormattedAddress, snap.Latitude, snap.Longitude)
	fmt.Fprintf(&sb, "Local time: %s (%s, %s)\n", snap.LocalTime, snap.DayOfWeek, snap.Timezone)
	fmt.Fprintf(&sb, "Weather: %s\n\n", snap.WeatherJSON)
	fmt.Fprintf(&sb, "Events: %s\n", b.EventsJSON)
	fmt.Fprintf(&sb, "News: %s\n", b.NewsJSON)
	fmt.Fprintf(&sb, "Traffic: %s\n", b.TrafficJSON)
	fmt.Fprintf(&sb, "Closures: %s\n", b.ClosuresJSON)
	return sb.String()
}

func plannerPrompt(snap *store.Snapshot, b *store.BriefingRow, immediate string, maxCandidates int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Driver position: %s (%.5f, %.5f)\n", snap.FormattedAddress, snap.Latitude, snap.Longitude)
	fmt.Fprintf(&sb, "Local time: %s (%s, %s)\n", snap.LocalTime, snap.DayOfWeek, snap.Timezone)
	fmt.Fprintf(&sb, "Weather: %s\n\n", snap.WeatherJSON)
	fmt.Fprintf(&sb, "Current tactical read:\n%s\n\n", immediate)
	fmt.Fprintf(&sb, "Events: %s\n", b.EventsJSON)
	fmt.Fprintf(&sb, "Traffic: %s\n", b.TrafficJSON)
	fmt.Fprintf(&sb, "Closures: %s\n\n", b.ClosuresJSON)
	fmt.Fprintf(&sb, "Return at most %d candidates.", maxCandidates)
	return sb.String()
}
