package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	"github.com/riskibarqy/livescore-sync/internal/domain/notification"
	"github.com/riskibarqy/livescore-sync/internal/domain/prediction"
	"github.com/riskibarqy/livescore-sync/internal/domain/runlock"
	"github.com/riskibarqy/livescore-sync/internal/domain/subscription"
	"github.com/riskibarqy/livescore-sync/internal/platform/cache"
	"github.com/riskibarqy/livescore-sync/internal/platform/id"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

const (
	RunStatusCompleted = "completed"
	RunStatusSkipped   = "skipped"

	LiveSyncJobPath = "/v1/internal/jobs/live-scores"
)

// DataAccess is every store one cycle touches. It is built once by the
// caller and handed to each component explicitly.
type DataAccess struct {
	FixtureSources    []fixture.Source
	Gameweeks         fixture.GameweekReader
	LiveScores        livescore.Repository
	States            notification.StateRepository
	Logs              notification.LogRepository
	PredictionSources []prediction.Source
	Subscriptions     subscription.Repository
	RunLocks          runlock.Repository
}

type LiveSyncConfig struct {
	PollDelay         time.Duration
	GameweekLookahead int
	KickoffSlot       time.Duration
	HealthCacheTTL    time.Duration
	DispatchWorkers   int
	PushPerSecond     float64
	ScheduleNext      bool
	LiveInterval      time.Duration
	PreKickoffLead    time.Duration
}

// RunObserver receives the outcome of every cycle, skipped ones included.
type RunObserver interface {
	ObserveRun(result RunResult, elapsed time.Duration)
}

type noopRunObserver struct{}

func (noopRunObserver) ObserveRun(RunResult, time.Duration) {}

type RunResult struct {
	RunID            string          `json:"run_id"`
	Status           string          `json:"status"`
	Message          string          `json:"message"`
	Gameweek         int             `json:"gameweek,omitempty"`
	FixturesResolved int             `json:"fixtures_resolved"`
	FixturesPolled   int             `json:"fixtures_polled"`
	ProviderSkipped  int             `json:"provider_skipped"`
	MatchFailures    int             `json:"match_failures"`
	ScoresWritten    int             `json:"scores_written"`
	OrphanScores     int             `json:"orphan_scores"`
	FailedSources    []string        `json:"failed_sources,omitempty"`
	Events           map[string]int  `json:"events"`
	Notifications    DeliveryReport  `json:"notifications"`
	StatesUpdated    int             `json:"states_updated"`
	GameweekReport   *GameweekReport `json:"gameweek_report,omitempty"`
	NextRunQueued    bool            `json:"next_run_queued"`
	Elapsed          time.Duration   `json:"-"`
}

// matchUpdate is one polled match whose state moved.
type matchUpdate struct {
	fixture fixture.Fixture
	score   livescore.LiveScore
	prev    *notification.State
	events  EventSet
}

// LiveSyncService runs one poll, diff and notify cycle.
type LiveSyncService struct {
	data       DataAccess
	guard      RunGuard
	scores     ScoreProvider
	resolver   *FixtureResolver
	reconciler *ScoreReconciler
	delivery   *DeliveryService
	completion *GameweekCompletionDetector
	composer   NotificationComposer
	queue      JobQueue
	observer   RunObserver
	ids        id.Generator
	cfg        LiveSyncConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewLiveSyncService(
	data DataAccess,
	guard RunGuard,
	scores ScoreProvider,
	push PushProvider,
	queue JobQueue,
	observer RunObserver,
	cfg LiveSyncConfig,
	logger *logging.Logger,
) *LiveSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if observer == nil {
		observer = noopRunObserver{}
	}
	if cfg.KickoffSlot <= 0 {
		cfg.KickoffSlot = defaultKickoffSlot
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = time.Minute
	}
	if cfg.PreKickoffLead <= 0 {
		cfg.PreKickoffLead = 5 * time.Minute
	}

	aliases := livescore.DefaultTeamAliases()
	health := NewSubscriptionHealthChecker(data.Subscriptions, push, cfg.HealthCacheTTL, logger)
	delivery := NewDeliveryService(data.Subscriptions, data.Logs, health, NewPushDispatcher(push, cfg.PushPerSecond, logger), cfg.DispatchWorkers, logger)

	return &LiveSyncService{
		data:       data,
		guard:      guard,
		scores:     scores,
		resolver:   NewFixtureResolver(data.Gameweeks, data.FixtureSources, cfg.GameweekLookahead, aliases, logger),
		reconciler: NewScoreReconciler(data.LiveScores, aliases, logger),
		delivery:   delivery,
		completion: NewGameweekCompletionDetector(data.States, delivery, logger),
		queue:      queue,
		observer:   observer,
		ids:        id.NewRandomGenerator(),
		cfg:        cfg,
		logger:     logger.Named("livesync"),
		now:        time.Now,
	}
}

// runScope holds what lives for exactly one cycle.
type runScope struct {
	runID    string
	audience *AudienceResolver
	limiter  *rate.Limiter
}

func (s *LiveSyncService) newRunScope() runScope {
	limit := rate.Inf
	if s.cfg.PollDelay > 0 {
		limit = rate.Every(s.cfg.PollDelay)
	}
	return runScope{
		runID:    s.ids.NewID(),
		audience: NewAudienceResolver(s.data.PredictionSources, cache.NewStore(0), s.logger),
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Run executes one cycle. Lock contention is a skipped result, not an error.
// Per-match failures are counted and skipped; only failures that make the
// whole cycle meaningless are returned.
func (s *LiveSyncService) Run(ctx context.Context) (result RunResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveSyncService.Run")
	defer span.End()

	started := s.now()
	scope := s.newRunScope()
	result = RunResult{RunID: scope.runID, Events: make(map[string]int)}
	logger := s.logger.With("run_id", scope.runID)
	defer func() {
		result.Elapsed = s.now().Sub(started)
		s.observer.ObserveRun(result, result.Elapsed)
	}()

	lock, err := s.guard.Acquire(ctx)
	if err != nil {
		return result, fmt.Errorf("acquire run lock: %w", err)
	}
	if lock == runlock.ResultSkipped {
		result.Status = RunStatusSkipped
		result.Message = "another run is active or ran too recently"
		return result, nil
	}

	window, err := s.resolver.CurrentWindow(ctx)
	if err != nil {
		return result, err
	}
	result.Gameweek = window.From

	resolution, err := s.resolver.Resolve(ctx, window)
	if err != nil {
		return result, fmt.Errorf("resolve fixtures: %w", err)
	}
	result.FixturesResolved = len(resolution.Active)
	result.FailedSources = resolution.FailedSource

	matchIDs := make([]int64, 0, len(resolution.Active))
	stateKeys := make([]notification.StateKey, 0, len(resolution.Active))
	for _, fx := range resolution.Active {
		matchIDs = append(matchIDs, fx.ExternalMatchID)
		stateKeys = append(stateKeys, notification.MatchStateKey(fx.ExternalMatchID))
	}
	persisted, err := s.data.LiveScores.GetByMatchIDs(ctx, matchIDs)
	if err != nil {
		return result, fmt.Errorf("load live scores: %w", err)
	}
	states, err := s.data.States.GetByKeys(ctx, stateKeys)
	if err != nil {
		return result, fmt.Errorf("load notification states: %w", err)
	}

	updates := make([]matchUpdate, 0)
	for _, fx := range resolution.Active {
		if ctx.Err() != nil {
			logger.WarnContext(ctx, "run cut off, leaving remaining fixtures for next cycle", "error", ctx.Err())
			break
		}
		update, ok := s.pollMatch(ctx, scope, logger, fx, persisted, states, &result)
		if !ok || update.events.Empty() {
			continue
		}
		for _, kind := range update.events.Kinds() {
			result.Events[string(kind)]++
		}
		updates = append(updates, update)
	}

	s.notify(ctx, scope, logger, updates, &result)

	if err := s.countOrphans(ctx, logger, resolution, &result); err != nil {
		logger.WarnContext(ctx, "orphan live score check failed", "error", err)
	}

	if err := s.checkGameweek(ctx, scope, resolution, &result); err != nil {
		logger.ErrorContext(ctx, "gameweek completion check failed", "gameweek", window.From, "error", err)
	}

	if s.cfg.ScheduleNext {
		s.scheduleNext(ctx, logger, resolution, persisted, updates, &result)
	}

	result.Status = RunStatusCompleted
	result.Message = fmt.Sprintf("polled %d of %d fixtures, sent %d notifications", result.FixturesPolled, result.FixturesResolved, result.Notifications.Sent)
	logger.InfoContext(ctx, "live sync cycle finished",
		"gameweek", result.Gameweek,
		"fixtures", result.FixturesResolved,
		"polled", result.FixturesPolled,
		"provider_skipped", result.ProviderSkipped,
		"match_failures", result.MatchFailures,
		"orphan_scores", result.OrphanScores,
		"sent", result.Notifications.Sent,
		"failed", result.Notifications.Failed,
	)
	return result, nil
}

func (s *LiveSyncService) pollMatch(
	ctx context.Context,
	scope runScope,
	logger *logging.Logger,
	fx fixture.Fixture,
	persisted map[int64]livescore.LiveScore,
	states map[notification.StateKey]notification.State,
	result *RunResult,
) (matchUpdate, bool) {
	prev, hasPrev := persisted[fx.ExternalMatchID]
	var curr livescore.LiveScore

	if hasPrev && prev.Status.IsFinished() {
		// Final already stored: only re-derive notifications a previous run missed.
		curr = prev
	} else {
		if err := scope.limiter.Wait(ctx); err != nil {
			logger.WarnContext(ctx, "poll delay interrupted", "external_match_id", fx.ExternalMatchID, "error", err)
			return matchUpdate{}, false
		}
		result.FixturesPolled++
		payload, err := s.scores.FetchMatch(ctx, fx.ExternalMatchID)
		if err != nil {
			result.ProviderSkipped++
			logger.WarnContext(ctx, "score fetch failed, retrying next cycle", "external_match_id", fx.ExternalMatchID, "error", err)
			return matchUpdate{}, false
		}
		if payload == nil {
			result.ProviderSkipped++
			return matchUpdate{}, false
		}

		var prevPtr *livescore.LiveScore
		if hasPrev {
			prevPtr = &prev
		}
		reconciled, written, err := s.reconciler.Reconcile(ctx, fx, *payload, prevPtr)
		if err != nil {
			result.MatchFailures++
			logger.ErrorContext(ctx, "reconcile live score failed", "external_match_id", fx.ExternalMatchID, "error", err)
			return matchUpdate{}, false
		}
		if written {
			result.ScoresWritten++
		}
		curr = reconciled
	}

	var prevState *notification.State
	if state, ok := states[notification.MatchStateKey(fx.ExternalMatchID)]; ok {
		prevState = &state
	}
	return matchUpdate{
		fixture: fx,
		score:   curr,
		prev:    prevState,
		events:  Classify(prevState, curr),
	}, true
}

// notifyBatch is the unit whose success advances NotificationState: one
// match, or every match of a generic kickoff bucket.
type notifyBatch struct {
	updates    []matchUpdate
	deliveries []Delivery
	err        error
}

func (s *LiveSyncService) notify(ctx context.Context, scope runScope, logger *logging.Logger, updates []matchUpdate, result *RunResult) {
	batches := s.buildBatches(ctx, scope, updates)
	for _, batch := range batches {
		if batch.err != nil {
			result.MatchFailures += len(batch.updates)
			logger.ErrorContext(ctx, "build notifications failed", "matches", matchIDsOf(batch.updates), "error", batch.err)
			continue
		}

		report, err := s.delivery.Deliver(ctx, batch.deliveries)
		result.Notifications.Add(report)
		if err != nil {
			result.MatchFailures += len(batch.updates)
			logger.ErrorContext(ctx, "deliver notifications failed", "matches", matchIDsOf(batch.updates), "error", err)
			continue
		}
		if report.Failed > 0 {
			logger.WarnContext(ctx, "some notifications failed, state kept for retry",
				"matches", matchIDsOf(batch.updates),
				"failed", report.Failed,
				"sent", report.Sent,
			)
			continue
		}

		notifiedAt := s.now().UTC()
		for _, update := range batch.updates {
			if err := s.data.States.Upsert(ctx, notification.StateFromScore(update.score, notifiedAt)); err != nil {
				result.MatchFailures++
				logger.ErrorContext(ctx, "update notification state failed", "external_match_id", update.fixture.ExternalMatchID, "error", err)
				continue
			}
			result.StatesUpdated++
		}
	}
}

func (s *LiveSyncService) buildBatches(ctx context.Context, scope runScope, updates []matchUpdate) []notifyBatch {
	batches := make([]notifyBatch, 0, len(updates))

	kickoffs := make([]fixture.Fixture, 0)
	kickoffUpdates := make(map[int64]matchUpdate)
	for _, update := range updates {
		kind, _ := update.events.Primary()
		if kind == notification.EventJustKickedOff {
			kickoffs = append(kickoffs, update.fixture)
			kickoffUpdates[update.fixture.ExternalMatchID] = update
			continue
		}
		batches = append(batches, s.matchBatch(ctx, scope, update, kind))
	}

	for _, bucket := range BucketKickoffs(kickoffs, s.cfg.KickoffSlot) {
		if !bucket.Generic() {
			update := kickoffUpdates[bucket.Fixtures[0].ExternalMatchID]
			batches = append(batches, s.matchBatch(ctx, scope, update, notification.EventJustKickedOff))
			continue
		}
		batches = append(batches, s.kickoffGroupBatch(ctx, scope, bucket, kickoffUpdates))
	}
	return batches
}

func (s *LiveSyncService) matchBatch(ctx context.Context, scope runScope, update matchUpdate, kind notification.EventKind) notifyBatch {
	batch := notifyBatch{updates: []matchUpdate{update}}
	audience, err := scope.audience.ForFixture(ctx, update.fixture.Gameweek, update.fixture.FixtureIndex)
	if err != nil {
		batch.err = err
		return batch
	}

	for _, userID := range audience.Users() {
		var correct *bool
		if kind != notification.EventJustKickedOff {
			ok := prediction.IsCorrect(audience[userID], update.score.HomeScore, update.score.AwayScore)
			correct = &ok
		}
		batch.deliveries = append(batch.deliveries, Delivery{
			UserID: userID,
			Message: s.composer.Compose(ComposeInput{
				Kind:     kind,
				Fixture:  update.fixture,
				Score:    update.score,
				Previous: update.prev,
				Correct:  correct,
				UserID:   userID,
			}),
		})
	}
	return batch
}

// kickoffGroupBatch sends one generic push per user, settling the kickoff
// event of every bucket match that user predicted.
func (s *LiveSyncService) kickoffGroupBatch(ctx context.Context, scope runScope, bucket KickoffBucket, updates map[int64]matchUpdate) notifyBatch {
	batch := notifyBatch{updates: make([]matchUpdate, 0, len(bucket.Fixtures))}
	for _, fx := range bucket.Fixtures {
		batch.updates = append(batch.updates, updates[fx.ExternalMatchID])
	}

	perUser := make(map[string][]fixture.Fixture)
	for _, fx := range bucket.Fixtures {
		audience, err := scope.audience.ForFixture(ctx, fx.Gameweek, fx.FixtureIndex)
		if err != nil {
			batch.err = err
			return batch
		}
		for userID := range audience {
			perUser[userID] = append(perUser[userID], fx)
		}
	}

	users := make([]string, 0, len(perUser))
	for userID := range perUser {
		users = append(users, userID)
	}
	sort.Strings(users)

	for _, userID := range users {
		fixtures := perUser[userID]
		msg := s.composer.ComposeKickoffGroup(len(bucket.Fixtures), fixtures[0], userID)
		events := make([]DeliveryEvent, 0, len(fixtures))
		for _, fx := range fixtures {
			events = append(events, DeliveryEvent{
				EventID:  s.composer.ComposeKickoffGroup(len(bucket.Fixtures), fx, userID).EventID,
				StateKey: notification.MatchStateKey(fx.ExternalMatchID),
			})
		}
		batch.deliveries = append(batch.deliveries, Delivery{UserID: userID, Message: msg, Events: events})
	}
	return batch
}

func (s *LiveSyncService) countOrphans(ctx context.Context, logger *logging.Logger, resolution Resolution, result *RunResult) error {
	scores, err := s.data.LiveScores.ListByGameweeks(ctx, resolution.Window.From, resolution.Window.To)
	if err != nil {
		return err
	}
	for _, score := range scores {
		if _, ok := resolution.All[score.ExternalMatchID]; ok {
			continue
		}
		result.OrphanScores++
		logger.DebugContext(ctx, "live score without fixture",
			"external_match_id", score.ExternalMatchID,
			"gameweek", score.Gameweek,
			"error", ErrDataInconsistency,
		)
	}
	return nil
}

func (s *LiveSyncService) checkGameweek(ctx context.Context, scope runScope, resolution Resolution, result *RunResult) error {
	gameweek := resolution.Window.From
	fixtures := resolution.ForGameweek(gameweek)
	ids := make([]int64, 0, len(fixtures))
	for _, fx := range fixtures {
		ids = append(ids, fx.ExternalMatchID)
	}
	scores, err := s.data.LiveScores.GetByMatchIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load gameweek live scores: %w", err)
	}

	report, err := s.completion.Check(ctx, gameweek, fixtures, scores, scope.audience)
	if report.Complete {
		result.GameweekReport = &report
		result.Notifications.Add(report.Delivery)
	}
	return err
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// scheduleNext asks the job queue for another cycle while matches are live,
// or shortly before the next kickoff.
func (s *LiveSyncService) scheduleNext(
	ctx context.Context,
	logger *logging.Logger,
	resolution Resolution,
	persisted map[int64]livescore.LiveScore,
	updates []matchUpdate,
	result *RunResult,
) {
	now := s.now().UTC()
	current := make(map[int64]livescore.LiveScore, len(persisted))
	for k, v := range persisted {
		current[k] = v
	}
	for _, u := range updates {
		current[u.fixture.ExternalMatchID] = u.score
	}

	hasLive, nearest := analyzeFixtures(resolution.Active, current, now)
	var delay time.Duration
	switch {
	case hasLive:
		delay = s.cfg.LiveInterval
	case nearest != nil:
		delay = nearest.Add(-s.cfg.PreKickoffLead).Sub(now)
		if delay < s.cfg.LiveInterval {
			delay = s.cfg.LiveInterval
		}
	default:
		return
	}

	dedupID := dedupKey("live-scores", fmt.Sprintf("gw%d", resolution.Window.From), now.Add(delay), s.cfg.LiveInterval)
	payload := map[string]any{"dispatch_id": dedupID}
	if err := s.queue.Enqueue(ctx, LiveSyncJobPath, payload, delay, dedupID); err != nil {
		logger.WarnContext(ctx, "enqueue next live sync failed", "dispatch_id", dedupID, "error", err)
		return
	}
	result.NextRunQueued = true
}

func analyzeFixtures(items []fixture.Fixture, scores map[int64]livescore.LiveScore, now time.Time) (bool, *time.Time) {
	var nearest *time.Time
	hasLive := false
	for _, item := range items {
		if score, ok := scores[item.ExternalMatchID]; ok {
			if score.Status.IsLive() {
				hasLive = true
			}
			if score.Status.IsFinished() {
				continue
			}
		}
		if item.KickoffAt.IsZero() || item.KickoffAt.Before(now) {
			continue
		}
		if nearest == nil || item.KickoffAt.Before(*nearest) {
			next := item.KickoffAt
			nearest = &next
		}
	}
	return hasLive, nearest
}

func dedupKey(prefix, scope string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	return sanitizeDedupSegment(prefix) + "-" + sanitizeDedupSegment(scope) + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func matchIDsOf(updates []matchUpdate) []int64 {
	out := make([]int64, 0, len(updates))
	for _, u := range updates {
		out = append(out, u.fixture.ExternalMatchID)
	}
	return out
}
