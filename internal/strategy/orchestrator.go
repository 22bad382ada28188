package strategy

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/event"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/logging"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/phase"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/provider"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/store"
)

// Stage names recorded on failures.
const (
	stageSafety   = "safety"
	stageBriefing = "briefing"
	stageStrategy = "strategy"
	stagePlan     = "plan"
	stageRanking  = "ranking"
)

// Options tunes the orchestrator. Zero values fall back to defaults.
type Options struct {
	// StaleAfter is how old a concurrent holder's lease may be before this
	// worker stops deduplicating and waits the holder out.
	StaleAfter time.Duration
	// NewsWindowDays is the trailing freshness window for news items.
	NewsWindowDays int
	// MaxCandidates bounds the accepted plan size.
	MaxCandidates int
	// MaxNameLength and MaxRationaleLength bound candidate text fields.
	MaxNameLength      int
	MaxRationaleLength int
}

const (
	defaultStaleAfter    = 3 * time.Minute
	defaultMaxCandidates = 8
	defaultMaxName       = 120
	defaultMaxRationale  = 500
)

// Orchestrator drives a snapshot through the full pipeline. One Run per
// snapshot id executes at a time across all workers sharing the database;
// concurrent calls deduplicate against the lock.
type Orchestrator struct {
	store   *store.Store
	locks   Locker
	router  Invoker
	tracker *phase.Tracker
	bus     *event.Bus
	log     *logging.Logger

	staleAfter     time.Duration
	newsWindowDays int
	limits         planLimits
	now            func() time.Time
}

// New creates an Orchestrator. bus may be nil to skip notifications.
func New(st *store.Store, locks Locker, router Invoker, bus *event.Bus, log *logging.Logger, opts Options) *Orchestrator {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = defaultMaxCandidates
	}
	if opts.MaxNameLength <= 0 {
		opts.MaxNameLength = defaultMaxName
	}
	if opts.MaxRationaleLength <= 0 {
		opts.MaxRationaleLength = defaultMaxRationale
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &Orchestrator{
		store:          st,
		locks:          locks,
		router:         router,
		tracker:        phase.NewTracker(st, bus),
		bus:            bus,
		log:            log,
		staleAfter:     opts.StaleAfter,
		newsWindowDays: opts.NewsWindowDays,
		limits: planLimits{
			MaxCandidates:      opts.MaxCandidates,
			MaxNameLength:      opts.MaxNameLength,
			MaxRationaleLength: opts.MaxRationaleLength,
		},
		now: time.Now,
	}
}

// Run takes a snapshot from intake to a persisted strategy and ranking.
//
// The call is idempotent per snapshot: the strategy row is created
// first-writer-wins and execution is guarded by the snapshot lock. When
// another worker holds the lock and its run is recent, Run yields with a
// deduplicated Result instead of competing. A stale holder (crashed worker)
// is waited out for a bounded period, after which the persisted state decides:
// terminal state is returned as-is, a non-terminal phase means the prior
// holder died mid-run and this worker runs the pipeline again.
func (o *Orchestrator) Run(ctx context.Context, snapshotID string) (Result, error) {
	log := o.log.WithSnapshot(snapshotID)

	snap, err := o.store.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return Result{}, err
	}
	created, err := o.store.CreateStrategyIfAbsent(ctx, snapshotID, o.now())
	if err != nil {
		return Result{}, err
	}
	if created {
		log.Info("strategy row created")
	}

	acquired, err := o.locks.TryAcquire(ctx, snapshotID)
	if err != nil {
		return Result{}, err
	}
	if !acquired {
		recent, err := o.locks.HeldRecently(ctx, snapshotID, o.staleAfter)
		if err != nil {
			return Result{}, err
		}
		if recent {
			log.Info("lock held by a recent run, deduplicating")
			return o.deduplicated(ctx, snapshotID)
		}

		log.Warn("lock held by a stale run, waiting for the lease to expire")
		if err := o.locks.AcquireBlocking(ctx, snapshotID); err != nil {
			return Result{}, err
		}
		row, err := o.store.GetStrategy(ctx, snapshotID)
		if err != nil {
			o.locks.Release(snapshotID)
			return Result{}, err
		}
		if row.Phase.IsTerminal() {
			// The stale holder finished after all; its result stands.
			o.locks.Release(snapshotID)
			return Result{SnapshotID: snapshotID, Status: row.Status, Deduplicated: true}, nil
		}
		log.Warn("prior holder died mid-run, re-running", "phase", row.Phase.String())
	}
	defer o.locks.Release(snapshotID)

	return o.execute(ctx, snap, log)
}

// deduplicated reports the concurrent run's persisted status without
// executing anything.
func (o *Orchestrator) deduplicated(ctx context.Context, snapshotID string) (Result, error) {
	status := StatusRunning
	if row, err := o.store.GetStrategy(ctx, snapshotID); err == nil {
		status = row.Status
	}
	return Result{SnapshotID: snapshotID, Status: status, Deduplicated: true}, nil
}

// execute runs the pipeline stages. The caller holds the lock.
func (o *Orchestrator) execute(ctx context.Context, snap *store.Snapshot, log *logging.Logger) (Result, error) {
	id := snap.SnapshotID
	if err := o.store.SetStrategyStatus(ctx, id, StatusRunning); err != nil {
		return Result{}, err
	}

	if cond, blocked := safetyCheck(snap.WeatherJSON); blocked {
		log.Warn("run rejected by safety gate", "condition", cond)
		now := o.now()
		o.persistFailure(ctx, id, stageSafety, "severe weather: "+cond, now)
		if err := o.store.SetStrategyStatus(ctx, id, StatusRejected); err != nil {
			return Result{}, err
		}
		o.failPhase(ctx, id, log)
		return Result{SnapshotID: id, Status: StatusRejected}, nil
	}

	// Stage A: research. Sub-source failures degrade, they never abort.
	if err := o.advance(ctx, id, phase.PhaseResolving, log); err != nil {
		return o.fail(ctx, id, stageBriefing, err, log)
	}
	ref := snap.CreatedAt
	if ref.IsZero() {
		ref = o.now()
	}
	br := o.gatherBriefing(ctx, snap, ref)
	if err := o.advance(ctx, id, phase.PhaseAnalyzing, log); err != nil {
		return o.fail(ctx, id, stageBriefing, err, log)
	}
	if err := o.store.SaveBriefing(ctx, br.row); err != nil {
		return o.fail(ctx, id, stageBriefing, err, log)
	}
	status := StatusOK
	if br.degraded {
		status = StatusPartial
		log.Warn("briefing degraded, run can end partial at best")
	}

	// Stage B: mandatory tactical synthesis.
	resp, err := o.router.Invoke(ctx, provider.RoleStrategist, provider.Request{
		SystemPrompt: strategistSystemPrompt,
		UserPrompt:   strategistPrompt(snap, &br.row),
	})
	if err != nil {
		return o.fail(ctx, id, stageStrategy, err, log)
	}
	immediate := strings.TrimSpace(resp.Text)
	if immediate == "" {
		return o.fail(ctx, id, stageStrategy,
			apperrors.NewProviderError(resp.Provider, apperrors.ClassInvalidOutput, "empty strategy", nil), log)
	}
	if err := o.store.SetStrategyText(ctx, id, immediate, ""); err != nil {
		return o.fail(ctx, id, stageStrategy, err, log)
	}
	if err := o.advance(ctx, id, phase.PhaseImmediate, log); err != nil {
		return o.fail(ctx, id, stageStrategy, err, log)
	}
	if o.bus != nil {
		o.bus.Publish(event.NewStrategyReadyEvent(id, status))
	}
	log.Info("immediate strategy ready", "provider", resp.Provider, "elapsed", resp.Elapsed.String())

	// Stage C: plan generation, scoring, and the atomic ranking write.
	if err := o.advance(ctx, id, phase.PhaseVenues, log); err != nil {
		return o.fail(ctx, id, stagePlan, err, log)
	}
	planResp, doc, err := o.generatePlan(ctx, snap, &br.row, immediate, log)
	if err != nil {
		return o.fail(ctx, id, stagePlan, err, log)
	}
	if err := o.advance(ctx, id, phase.PhaseRouting, log); err != nil {
		return o.fail(ctx, id, stageRanking, err, log)
	}
	rankingID := uuid.NewString()
	candidates := buildCandidates(rankingID, doc)
	if err := o.advance(ctx, id, phase.PhasePlaces, log); err != nil {
		return o.fail(ctx, id, stageRanking, err, log)
	}
	if err := o.advance(ctx, id, phase.PhaseVerifying, log); err != nil {
		return o.fail(ctx, id, stageRanking, err, log)
	}

	ranking := store.RankingRow{
		RankingID:  rankingID,
		SnapshotID: id,
		Provider:   planResp.Provider,
		Model:      planResp.Model,
		ElapsedMs:  planResp.Elapsed.Milliseconds(),
		CreatedAt:  o.now(),
	}
	if err := o.store.InsertRanking(ctx, ranking, candidates); err != nil {
		return o.fail(ctx, id, stageRanking, err, log)
	}
	if err := o.store.SetStrategyText(ctx, id, immediate, doc.ExtendedStrategy); err != nil {
		return o.fail(ctx, id, stageRanking, err, log)
	}
	if err := o.store.CompleteRanking(ctx, rankingID, planResp.Elapsed.Milliseconds(), o.now()); err != nil {
		return o.fail(ctx, id, stageRanking, err, log)
	}

	if err := o.advance(ctx, id, phase.PhaseComplete, log); err != nil {
		return o.fail(ctx, id, stageRanking, err, log)
	}
	if err := o.store.SetStrategyStatus(ctx, id, status); err != nil {
		return Result{}, err
	}
	if o.bus != nil {
		o.bus.Publish(event.NewRankingReadyEvent(id, rankingID, len(candidates)))
	}
	log.Info("pipeline complete", "status", status, "candidates", len(candidates))

	return Result{
		SnapshotID: id,
		Status:     status,
		RankingID:  rankingID,
		Candidates: len(candidates),
	}, nil
}

// generatePlan invokes the planner and strictly validates its output.
// Invalid output gets exactly one fresh generation; chain-level failures are
// the router's problem and are not retried here.
func (o *Orchestrator) generatePlan(ctx context.Context, snap *store.Snapshot, b *store.BriefingRow, immediate string, log *logging.Logger) (*provider.Response, *planDoc, error) {
	req := provider.Request{
		SystemPrompt: plannerSystemPrompt,
		UserPrompt:   plannerPrompt(snap, b, immediate, o.limits.MaxCandidates),
		JSONMode:     true,
	}
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := o.router.Invoke(ctx, provider.RolePlanner, req)
		if err != nil {
			return nil, nil, err
		}
		doc, err := parsePlan(resp.Provider, resp.Text, o.limits)
		if err == nil {
			return resp, doc, nil
		}
		lastErr = err
		log.Warn("plan failed validation", "attempt", attempt+1, "error", err.Error())
	}
	return nil, nil, lastErr
}

// buildCandidates scores and orders the accepted plan into candidate rows.
func buildCandidates(rankingID string, doc *planDoc) []store.CandidateRow {
	rows := make([]store.CandidateRow, len(doc.Candidates))
	for i, c := range doc.Candidates {
		vpm := ValuePerMinute(c.EstEarnings, c.DriveMinutes)
		rows[i] = store.CandidateRow{
			CandidateID:  uuid.NewString(),
			RankingID:    rankingID,
			Position:     i + 1,
			Name:         c.Name,
			Category:     c.Category,
			Latitude:     c.Latitude,
			Longitude:    c.Longitude,
			DriveMinutes: c.DriveMinutes,
			EstEarnings:  c.EstEarnings,
			ValuePerMin:  vpm,
			Grade:        Grade(vpm),
			Rationale:    c.Rationale,
		}
	}
	return rows
}

// advance moves the durable phase forward. A rejected regression is not an
// error here: a run resumed after a dead holder may already be past this
// phase, and the record simply keeps its later value.
func (o *Orchestrator) advance(ctx context.Context, id string, p phase.Phase, log *logging.Logger) error {
	err := o.tracker.SetPhase(ctx, id, p)
	if err == nil {
		return nil
	}
	if apperrors.Is(err, phase.ErrRegression) {
		log.Debug("phase already past, keeping recorded value", "target", p.String())
		return nil
	}
	return err
}

// fail persists the stage failure and terminal state, then returns the failed
// Result together with a StageError wrapping the cause.
func (o *Orchestrator) fail(ctx context.Context, id, stage string, cause error, log *logging.Logger) (Result, error) {
	log.Error("stage failed", "stage", stage, "error", cause.Error())
	o.persistFailure(ctx, id, stage, cause.Error(), o.now())
	if err := o.store.SetStrategyStatus(ctx, id, StatusFailed); err != nil {
		log.Error("failed to persist failed status", "error", err.Error())
	}
	o.failPhase(ctx, id, log)
	return Result{SnapshotID: id, Status: StatusFailed}, apperrors.NewStageError(stage, "pipeline stage failed", cause)
}

func (o *Orchestrator) persistFailure(ctx context.Context, id, stage, message string, at time.Time) {
	if err := o.store.SetStrategyFailure(ctx, id, stage, message, at); err != nil {
		o.log.WithSnapshot(id).Error("failed to persist failure detail", "error", err.Error())
	}
}

func (o *Orchestrator) failPhase(ctx context.Context, id string, log *logging.Logger) {
	if err := o.tracker.Fail(ctx, id); err != nil && !apperrors.Is(err, phase.ErrRegression) {
		log.Error("failed to record failed phase", "error", err.Error())
	}
}
