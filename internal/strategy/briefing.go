package strategy

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/freshness"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/logging"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/provider"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/store"
)

// briefingResult is the gathered, freshness-filtered context plus whether any
// sub-source had to be degraded to an empty result.
type briefingResult struct {
	row      store.BriefingRow
	degraded bool
}

// gatherBriefing runs the four research sub-calls in parallel. Each
// sub-source is failure-isolated: a failed or unparsable result degrades to
// an empty container and marks the briefing degraded, it never aborts the
// stage. Events and news are freshness-filtered against the snapshot's
// reference instant and timezone before persisting.
func (o *Orchestrator) gatherBriefing(ctx context.Context, snap *store.Snapshot, ref time.Time) briefingResult {
	log := o.log.WithSnapshot(snap.SnapshotID)

	type subResult struct {
		source string
		raw    string
		err    error
	}
	sources := []string{sourceEvents, sourceNews, sourceTraffic, sourceClosures}
	results := make(chan subResult, len(sources))

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			resp, err := o.router.Invoke(ctx, provider.RoleResearch, provider.Request{
				SystemPrompt: researchSystemPrompt,
				UserPrompt:   researchPrompt(src, snap),
				JSONMode:     true,
			})
			if err != nil {
				results <- subResult{source: src, err: err}
				return
			}
			results <- subResult{source: src, raw: stripFences(resp.Text)}
		}(src)
	}
	wg.Wait()
	close(results)

	raw := make(map[string]string, len(sources))
	degraded := false
	for res := range results {
		if res.err != nil {
			log.Warn("research sub-source failed, degrading to empty",
				"source", res.source, "error", res.err.Error())
			degraded = true
			continue
		}
		raw[res.source] = res.raw
	}

	br := briefingResult{degraded: degraded}
	br.row = store.BriefingRow{
		SnapshotID:  snap.SnapshotID,
		WeatherJSON: snap.WeatherJSON,
		CreatedAt:   ref,
	}

	// Events and news pass through the freshness filter; a parse failure of
	// the sub-source document degrades it like a failed call.
	if doc, ok := raw[sourceEvents]; ok {
		var items []freshness.EventItem
		if err := json.Unmarshal([]byte(doc), &items); err != nil {
			log.Warn("events document unparsable, degrading to empty", "error", err.Error())
			br.degraded = true
		} else {
			br.row.EventsJSON = marshalList(freshness.FreshEvents(items, ref, snap.Timezone))
		}
	}
	if doc, ok := raw[sourceNews]; ok {
		var items []freshness.NewsItem
		if err := json.Unmarshal([]byte(doc), &items); err != nil {
			log.Warn("news document unparsable, degrading to empty", "error", err.Error())
			br.degraded = true
		} else {
			br.row.NewsJSON = marshalList(freshness.FreshNews(items, ref, snap.Timezone, o.newsWindowDays))
		}
	}
	if doc, ok := raw[sourceTraffic]; ok {
		br.row.TrafficJSON = validListOrDegrade(doc, sourceTraffic, &br.degraded, log)
	}
	if doc, ok := raw[sourceClosures]; ok {
		br.row.ClosuresJSON = validListOrDegrade(doc, sourceClosures, &br.degraded, log)
	}

	// Degraded sub-sources are empty containers, never absent fields: the
	// strategist and planner prompts read this row directly, before the store
	// applies the same normalization on write.
	br.row.EventsJSON = orEmptyList(br.row.EventsJSON)
	br.row.NewsJSON = orEmptyList(br.row.NewsJSON)
	br.row.TrafficJSON = orEmptyList(br.row.TrafficJSON)
	br.row.ClosuresJSON = orEmptyList(br.row.ClosuresJSON)
	if br.row.WeatherJSON == "" {
		br.row.WeatherJSON = "{}"
	}
	return br
}

func orEmptyList(s string) string {
	if s == "" {
		return "[]"
	}
	return s
}

// marshalList serializes a filtered slice, falling back to an empty JSON
// array. Encoding a slice of plain structs cannot realistically fail, but the
// briefing columns must never hold malformed JSON.
func marshalList[T any](items []T) string {
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// validListOrDegrade accepts a sub-source document only if it is a JSON
// array; anything else degrades to empty.
func validListOrDegrade(doc, source string, degraded *bool, log *logging.Logger) string {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(doc), &items); err != nil {
		log.Warn("sub-source document is not a JSON array, degrading to empty",
			"source", source, "error", err.Error())
		*degraded = true
		return ""
	}
	return doc
}
