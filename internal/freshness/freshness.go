// Package freshness filters retrieved briefing content by temporal validity.
// All filters are pure functions of (items, reference instant, timezone): no
// clock reads, no side effects, safe to call repeatedly. Callers pass the
// reference instant explicitly so tests never need time mocking.
package freshness

import (
	"time"
)

// DefaultEventDuration is assumed for events that declare a start but no end.
const DefaultEventDuration = 4 * time.Hour

// DefaultNewsWindowDays is the trailing window for news items.
const DefaultNewsWindowDays = 3

// endOfDayHour/endOfDayMinute: a date-only end resolves to 23:59 local time,
// end of that day, never midnight at its start.
const (
	endOfDayHour   = 23
	endOfDayMinute = 59
)

// instantLayouts are the timestamp shapes providers return, tried in order.
// Layouts without a zone are interpreted in the item's declared timezone via
// ParseInLocation, which accounts for DST on the specific date.
var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// dateLayout is the shape of date-only fields.
const dateLayout = "2006-01-02"

// timeLayouts are the shapes of time-of-day fields.
var timeLayouts = []string{"15:04:05", "15:04", "3:04 PM", "3:04PM"}

// EventItem is a retrieved scheduled happening (concert, game, festival).
// Every time field is optional and loosely formatted; the filter derives a
// canonical end instant or rejects the item.
type EventItem struct {
	Title    string `json:"title"`
	Venue    string `json:"venue,omitempty"`
	Address  string `json:"address,omitempty"`
	StartsAt string `json:"starts_at,omitempty"` // instant or civil datetime
	EndsAt   string `json:"ends_at,omitempty"`   // explicit end datetime
	EndDate  string `json:"end_date,omitempty"`  // 2006-01-02
	EndTime  string `json:"end_time,omitempty"`  // 15:04
	Summary  string `json:"summary,omitempty"`
}

// NewsItem is a retrieved news or advisory article.
type NewsItem struct {
	Title       string `json:"title"`
	Source      string `json:"source,omitempty"`
	URL         string `json:"url,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// FreshEvents returns the subset of items still ongoing or upcoming relative
// to ref. The end instant is derived in priority order:
//
//  1. an explicit end datetime,
//  2. end date + end time combined in tz,
//  3. end date alone, resolved to 23:59 local time in tz,
//  4. no end information: start + DefaultEventDuration.
//
// An item without a parseable start instant is always excluded; starts are
// never defaulted or guessed. An item is fresh iff its end is strictly after
// ref.
func FreshEvents(items []EventItem, ref time.Time, tz string) []EventItem {
	loc := location(tz)
	fresh := make([]EventItem, 0, len(items))
	for _, item := range items {
		end, ok := eventEnd(item, loc)
		if !ok {
			continue
		}
		if end.After(ref) {
			fresh = append(fresh, item)
		}
	}
	return fresh
}

// eventEnd computes the canonical end instant for an event, or false when the
// item must be rejected.
func eventEnd(item EventItem, loc *time.Location) (time.Time, bool) {
	start, hasStart := parseInstant(item.StartsAt, loc)
	if !hasStart {
		return time.Time{}, false
	}

	if end, ok := parseInstant(item.EndsAt, loc); ok {
		return end, true
	}

	if item.EndDate != "" {
		date, err := time.ParseInLocation(dateLayout, item.EndDate, loc)
		if err != nil {
			return time.Time{}, false
		}
		if clock, ok := parseClock(item.EndTime); ok {
			return time.Date(date.Year(), date.Month(), date.Day(),
				clock.Hour(), clock.Minute(), clock.Second(), 0, loc), true
		}
		return time.Date(date.Year(), date.Month(), date.Day(),
			endOfDayHour, endOfDayMinute, 0, 0, loc), true
	}

	return start.Add(DefaultEventDuration), true
}

// FreshNews returns items published within the trailing window, measured
// backward from the reference instant at local-midnight granularity: the
// cutoff is midnight (in tz) of the reference day, minus windowDays days.
// The window is trailing only, so an item dated past the end of the reference
// day is excluded as well; a future publication date is retrieval noise, not
// news. Items without a parseable publication instant are always excluded.
// A windowDays <= 0 falls back to DefaultNewsWindowDays.
func FreshNews(items []NewsItem, ref time.Time, tz string, windowDays int) []NewsItem {
	if windowDays <= 0 {
		windowDays = DefaultNewsWindowDays
	}
	loc := location(tz)

	local := ref.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	cutoff := midnight.AddDate(0, 0, -windowDays)
	dayEnd := midnight.AddDate(0, 0, 1)

	fresh := make([]NewsItem, 0, len(items))
	for _, item := range items {
		published, ok := parseInstant(item.PublishedAt, loc)
		if !ok {
			continue
		}
		if !published.Before(cutoff) && published.Before(dayEnd) {
			fresh = append(fresh, item)
		}
	}
	return fresh
}

// parseInstant parses a timestamp string, trying zoned layouts first and
// falling back to civil layouts interpreted in loc.
func parseInstant(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseClock parses a time-of-day string.
func parseClock(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// location resolves an IANA timezone name, falling back to UTC when the name
// is empty or unknown. A wrong-but-deterministic zone beats failing the whole
// briefing over one malformed field.
func location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
