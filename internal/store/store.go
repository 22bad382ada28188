// Package store is the sqlite persistence layer for snapshots, strategies,
// briefings, rankings, and lock leases. All rows are keyed by snapshot id.
// The orchestrator is the only writer for a given snapshot while it holds
// that snapshot's lease; everything else reads.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/phase"
)

// timeLayout is how timestamps are stored in sqlite text columns: fixed-width
// nanoseconds, always UTC. The lease queries compare expires_at as TEXT, so
// the rendering must sort lexicographically in chronological order no matter
// which process wrote it.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime renders a timestamp for storage. Every write goes through this
// so the table never mixes zones.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// the schema. WAL mode and a busy timeout let multiple worker processes on
// one host share the file safely.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// -----------------------------------------------------------------------------
// Snapshots (read-mostly context; created by the intake layer)
// -----------------------------------------------------------------------------

// Snapshot is the immutable point-in-time driver context a strategy is
// generated for. The orchestrator never mutates it.
type Snapshot struct {
	SnapshotID       string
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	LocalTime        string
	Timezone         string
	DayOfWeek        string
	WeatherJSON      string
	CreatedAt        time.Time
}

// InsertSnapshot stores a new snapshot context.
func (s *Store) InsertSnapshot(ctx context.Context, snap Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	weather := snap.WeatherJSON
	if weather == "" {
		weather = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (snapshot_id, latitude, longitude, formatted_address,
			local_time, timezone, day_of_week, weather_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.SnapshotID, snap.Latitude, snap.Longitude, snap.FormattedAddress,
		snap.LocalTime, snap.Timezone, snap.DayOfWeek, weather, formatTime(snap.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot loads a snapshot context by id.
func (s *Store) GetSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error) {
	var snap Snapshot
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, latitude, longitude, formatted_address,
			local_time, timezone, day_of_week, weather_json, created_at
		FROM snapshots WHERE snapshot_id = ?`, snapshotID).Scan(
		&snap.SnapshotID, &snap.Latitude, &snap.Longitude, &snap.FormattedAddress,
		&snap.LocalTime, &snap.Timezone, &snap.DayOfWeek, &snap.WeatherJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSnapshotNotFound, snapshotID)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	snap.CreatedAt = parseTime(createdAt)
	return &snap, nil
}

// -----------------------------------------------------------------------------
// Strategies
// -----------------------------------------------------------------------------

// StrategyRow is the durable record of one pipeline run for a snapshot.
// Exactly one row exists per snapshot id; creation is first-writer-wins.
type StrategyRow struct {
	SnapshotID        string
	Phase             phase.Phase
	Status            string
	ImmediateStrategy string
	ExtendedStrategy  string
	ErrorStage        string
	ErrorMessage      string
	ErrorAt           time.Time
	PhaseStartedAt    time.Time
	PipelineStartedAt time.Time
	UpdatedAt         time.Time
}

// CreateStrategyIfAbsent inserts the pending strategy row for a snapshot if
// none exists. Returns true if this call created the row; a concurrent
// creation by another process is reported as false with no error.
func (s *Store) CreateStrategyIfAbsent(ctx context.Context, snapshotID string, now time.Time) (bool, error) {
	ts := formatTime(now)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO strategies (snapshot_id, phase, status, phase_started_at, pipeline_started_at, updated_at)
		VALUES (?, ?, 'pending', ?, ?, ?)
		ON CONFLICT(snapshot_id) DO NOTHING`,
		snapshotID, phase.PhaseStarting, ts, ts, ts)
	if err != nil {
		return false, fmt.Errorf("create strategy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create strategy rows affected: %w", err)
	}
	return n == 1, nil
}

// GetStrategy loads the strategy row for a snapshot.
func (s *Store) GetStrategy(ctx context.Context, snapshotID string) (*StrategyRow, error) {
	var row StrategyRow
	var ph, errorAt, phaseAt, pipelineAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, phase, status, immediate_strategy, extended_strategy,
			error_stage, error_message, error_at, phase_started_at, pipeline_started_at, updated_at
		FROM strategies WHERE snapshot_id = ?`, snapshotID).Scan(
		&row.SnapshotID, &ph, &row.Status, &row.ImmediateStrategy, &row.ExtendedStrategy,
		&row.ErrorStage, &row.ErrorMessage, &errorAt, &phaseAt, &pipelineAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrStrategyNotFound, snapshotID)
	}
	if err != nil {
		return nil, fmt.Errorf("get strategy: %w", err)
	}
	row.Phase = phase.Phase(ph)
	row.ErrorAt = parseTime(errorAt)
	row.PhaseStartedAt = parseTime(phaseAt)
	row.PipelineStartedAt = parseTime(pipelineAt)
	row.UpdatedAt = parseTime(updatedAt)
	return &row, nil
}

// StrategyPhase returns the recorded phase for a snapshot, or empty string
// when no strategy row exists yet. Implements phase.Store.
func (s *Store) StrategyPhase(ctx context.Context, snapshotID string) (phase.Phase, error) {
	var ph string
	err := s.db.QueryRowContext(ctx,
		`SELECT phase FROM strategies WHERE snapshot_id = ?`, snapshotID).Scan(&ph)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read phase: %w", err)
	}
	return phase.Phase(ph), nil
}

// WriteStrategyPhase records a phase and its start timestamp. Implements
// phase.Store.
func (s *Store) WriteStrategyPhase(ctx context.Context, snapshotID string, p phase.Phase, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE strategies SET phase = ?, phase_started_at = ?, updated_at = ?
		WHERE snapshot_id = ?`,
		p, formatTime(at), formatTime(at), snapshotID)
	if err != nil {
		return fmt.Errorf("write phase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrStrategyNotFound, snapshotID)
	}
	return nil
}

// StrategyTiming returns the recorded phase, phase start, and pipeline start.
// Implements phase.Store.
func (s *Store) StrategyTiming(ctx context.Context, snapshotID string) (phase.Phase, time.Time, time.Time, error) {
	var ph, phaseAt, pipelineAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT phase, phase_started_at, pipeline_started_at
		FROM strategies WHERE snapshot_id = ?`, snapshotID).Scan(&ph, &phaseAt, &pipelineAt)
	if err == sql.ErrNoRows {
		return "", time.Time{}, time.Time{}, fmt.Errorf("%w: %s", apperrors.ErrStrategyNotFound, snapshotID)
	}
	if err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("read timing: %w", err)
	}
	return phase.Phase(ph), parseTime(phaseAt), parseTime(pipelineAt), nil
}

// SetStrategyStatus updates the run status (pending, running, ok, partial,
// failed, rejected).
func (s *Store) SetStrategyStatus(ctx context.Context, snapshotID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE strategies SET status = ?, updated_at = ? WHERE snapshot_id = ?`,
		status, formatTime(time.Now()), snapshotID)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// SetStrategyText stores the generated guidance texts.
func (s *Store) SetStrategyText(ctx context.Context, snapshotID, immediate, extended string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE strategies SET immediate_strategy = ?, extended_strategy = ?, updated_at = ?
		WHERE snapshot_id = ?`,
		immediate, extended, formatTime(time.Now()), snapshotID)
	if err != nil {
		return fmt.Errorf("set strategy text: %w", err)
	}
	return nil
}

// SetStrategyFailure records where and why a run failed. The message is
// truncated before persisting.
func (s *Store) SetStrategyFailure(ctx context.Context, snapshotID, stage, message string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE strategies SET error_stage = ?, error_message = ?, error_at = ?, updated_at = ?
		WHERE snapshot_id = ?`,
		stage, apperrors.Truncate(message, apperrors.MaxPersistedMessage),
		formatTime(at), formatTime(at), snapshotID)
	if err != nil {
		return fmt.Errorf("set failure: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Briefings
// -----------------------------------------------------------------------------

// BriefingRow holds the retrieved context for a snapshot. Each field is a
// JSON document; empty sub-results are stored as empty containers, never
// null, so downstream consumers always see well-formed input.
type BriefingRow struct {
	SnapshotID   string
	EventsJSON   string
	NewsJSON     string
	TrafficJSON  string
	ClosuresJSON string
	WeatherJSON  string
	CreatedAt    time.Time
}

// SaveBriefing upserts the briefing for a snapshot.
func (s *Store) SaveBriefing(ctx context.Context, b BriefingRow) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO briefings (snapshot_id, events_json, news_json, traffic_json, closures_json, weather_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_id) DO UPDATE SET
			events_json = excluded.events_json,
			news_json = excluded.news_json,
			traffic_json = excluded.traffic_json,
			closures_json = excluded.closures_json,
			weather_json = excluded.weather_json`,
		b.SnapshotID, orEmpty(b.EventsJSON, "[]"), orEmpty(b.NewsJSON, "[]"),
		orEmpty(b.TrafficJSON, "[]"), orEmpty(b.ClosuresJSON, "[]"),
		orEmpty(b.WeatherJSON, "{}"), formatTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("save briefing: %w", err)
	}
	return nil
}

// GetBriefing loads the briefing for a snapshot.
func (s *Store) GetBriefing(ctx context.Context, snapshotID string) (*BriefingRow, error) {
	var b BriefingRow
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, events_json, news_json, traffic_json, closures_json, weather_json, created_at
		FROM briefings WHERE snapshot_id = ?`, snapshotID).Scan(
		&b.SnapshotID, &b.EventsJSON, &b.NewsJSON, &b.TrafficJSON, &b.ClosuresJSON, &b.WeatherJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: briefing for %s", apperrors.ErrMissingPrereq, snapshotID)
	}
	if err != nil {
		return nil, fmt.Errorf("get briefing: %w", err)
	}
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

// -----------------------------------------------------------------------------
// Rankings and candidates
// -----------------------------------------------------------------------------

// RankingRow is the metadata for one completed candidate-generation run.
// Immutable after insert except for the trailing timing update.
type RankingRow struct {
	RankingID   string
	SnapshotID  string
	Provider    string
	Model       string
	ElapsedMs   int64
	CreatedAt   time.Time
	CompletedAt time.Time
}

// CandidateRow is a single ranked recommendation.
type CandidateRow struct {
	CandidateID  string
	RankingID    string
	Position     int
	Name         string
	Category     string
	Latitude     float64
	Longitude    float64
	DriveMinutes float64
	EstEarnings  float64
	ValuePerMin  float64
	Grade        string
	Rationale    string
}

// InsertRanking stores a ranking and its candidates as one transaction:
// either the whole ranking lands or none of it does.
func (s *Store) InsertRanking(ctx context.Context, r RankingRow, candidates []CandidateRow) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ranking tx: %w", err)
	}
	defer tx.Rollback()

	completedAt := ""
	if !r.CompletedAt.IsZero() {
		completedAt = formatTime(r.CompletedAt)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rankings (ranking_id, snapshot_id, provider, model, elapsed_ms, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RankingID, r.SnapshotID, r.Provider, r.Model, r.ElapsedMs,
		formatTime(r.CreatedAt), completedAt); err != nil {
		return fmt.Errorf("insert ranking: %w", err)
	}

	for _, c := range candidates {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO candidates (candidate_id, ranking_id, position, name, category,
				latitude, longitude, drive_minutes, est_earnings, value_per_min, grade, rationale)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.CandidateID, r.RankingID, c.Position, c.Name, c.Category,
			c.Latitude, c.Longitude, c.DriveMinutes, c.EstEarnings,
			c.ValuePerMin, c.Grade, c.Rationale); err != nil {
			return fmt.Errorf("insert candidate %d: %w", c.Position, err)
		}
	}

	return tx.Commit()
}

// CompleteRanking applies the trailing timing-metadata update, the only
// mutation a ranking permits after creation.
func (s *Store) CompleteRanking(ctx context.Context, rankingID string, elapsedMs int64, completedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE rankings SET elapsed_ms = ?, completed_at = ? WHERE ranking_id = ?`,
		elapsedMs, formatTime(completedAt), rankingID)
	if err != nil {
		return fmt.Errorf("complete ranking: %w", err)
	}
	return nil
}

// GetRanking loads the ranking and its ordered candidates for a snapshot.
func (s *Store) GetRanking(ctx context.Context, snapshotID string) (*RankingRow, []CandidateRow, error) {
	var r RankingRow
	var createdAt, completedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT ranking_id, snapshot_id, provider, model, elapsed_ms, created_at, completed_at
		FROM rankings WHERE snapshot_id = ?`, snapshotID).Scan(
		&r.RankingID, &r.SnapshotID, &r.Provider, &r.Model, &r.ElapsedMs, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrRankingNotFound, snapshotID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get ranking: %w", err)
	}
	r.CreatedAt = parseTime(createdAt)
	r.CompletedAt = parseTime(completedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT candidate_id, ranking_id, position, name, category,
			latitude, longitude, drive_minutes, est_earnings, value_per_min, grade, rationale
		FROM candidates WHERE ranking_id = ? ORDER BY position`, r.RankingID)
	if err != nil {
		return nil, nil, fmt.Errorf("get candidates: %w", err)
	}
	defer rows.Close()

	var candidates []CandidateRow
	for rows.Next() {
		var c CandidateRow
		if err := rows.Scan(&c.CandidateID, &c.RankingID, &c.Position, &c.Name, &c.Category,
			&c.Latitude, &c.Longitude, &c.DriveMinutes, &c.EstEarnings,
			&c.ValuePerMin, &c.Grade, &c.Rationale); err != nil {
			return nil, nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return &r, candidates, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func orEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
