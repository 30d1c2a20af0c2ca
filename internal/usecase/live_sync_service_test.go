package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	"github.com/riskibarqy/livescore-sync/internal/domain/notification"
	"github.com/riskibarqy/livescore-sync/internal/domain/prediction"
	"github.com/riskibarqy/livescore-sync/internal/domain/subscription"
	"github.com/riskibarqy/livescore-sync/internal/infrastructure/repository/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingQueue struct {
	mu    sync.Mutex
	calls []string
	delay []time.Duration
}

func (q *recordingQueue) Enqueue(_ context.Context, path string, _ any, delay time.Duration, dedupID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, path+"|"+dedupID)
	q.delay = append(q.delay, delay)
	return nil
}

type liveSyncHarness struct {
	clock    *testClock
	fixtures *memory.FixtureSource
	scores   *memory.LiveScoreRepository
	states   *memory.NotificationStateRepository
	logs     *memory.NotificationLogRepository
	locks    *memory.RunLockRepository
	provider *stubScoreProvider
	push     *stubPushProvider
	queue    *recordingQueue
	svc      *LiveSyncService
}

var harnessStart = time.Date(2026, 3, 7, 15, 1, 0, 0, time.UTC)

func newLiveSyncHarness(t *testing.T, fixtures []fixture.Fixture, predictions []prediction.Prediction, cfg LiveSyncConfig) *liveSyncHarness {
	t.Helper()

	h := &liveSyncHarness{
		clock:    &testClock{now: harnessStart},
		fixtures: memory.NewFixtureSource("fixtures", fixtures),
		scores:   memory.NewLiveScoreRepository(),
		states:   memory.NewNotificationStateRepository(),
		logs:     memory.NewNotificationLogRepository(),
		locks:    memory.NewRunLockRepository(),
		provider: newStubScoreProvider(),
		push:     &stubPushProvider{},
		queue:    &recordingQueue{},
	}

	data := DataAccess{
		FixtureSources:    []fixture.Source{h.fixtures},
		Gameweeks:         memory.NewGameweekReader(5),
		LiveScores:        h.scores,
		States:            h.states,
		Logs:              h.logs,
		PredictionSources: []prediction.Source{memory.NewPredictionSource("predictions", predictions)},
		Subscriptions: memory.NewSubscriptionRepository(
			subscription.PushSubscription{UserID: "u1", DeviceToken: "p1", IsActive: true},
			subscription.PushSubscription{UserID: "u2", DeviceToken: "p2", IsActive: true},
		),
		RunLocks: h.locks,
	}

	lock := NewRunLock(h.locks, RunLockConfig{}, nil)
	lock.now = h.clock.Now
	lock.sleep = func(context.Context, time.Duration) error { return nil }

	h.svc = NewLiveSyncService(data, lock, h.provider, h.push, h.queue, nil, cfg, nil)
	h.svc.now = h.clock.Now
	h.svc.reconciler.now = h.clock.Now
	return h
}

// next advances past the run lock interval and runs one cycle.
func (h *liveSyncHarness) next(t *testing.T) RunResult {
	t.Helper()
	h.clock.Advance(time.Minute)
	h.push.reset()
	result, err := h.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return result
}

func (h *liveSyncHarness) state(t *testing.T, matchID int64) (notification.State, bool) {
	t.Helper()
	key := notification.MatchStateKey(matchID)
	states, err := h.states.GetByKeys(context.Background(), []notification.StateKey{key})
	if err != nil {
		t.Fatalf("GetByKeys error: %v", err)
	}
	state, ok := states[key]
	return state, ok
}

func liveMatch(id int64, status string, home, away int) *ExternalMatch {
	current := ExternalScore{Home: intPtr(home), Away: intPtr(away)}
	m := &ExternalMatch{ID: id, Status: status, Current: current}
	if status == "FINISHED" {
		m.FullTime = current
	}
	return m
}

func singleFixture() []fixture.Fixture {
	return []fixture.Fixture{{
		ExternalMatchID: 100, Gameweek: 5, FixtureIndex: 1,
		HomeTeam: "Arsenal", AwayTeam: "Chelsea",
		KickoffAt: harnessStart.Truncate(time.Hour), Status: "SCHEDULED",
	}}
}

func twoPicks() []prediction.Prediction {
	return []prediction.Prediction{
		{UserID: "u1", Gameweek: 5, FixtureIndex: 1, Outcome: prediction.OutcomeHome},
		{UserID: "u2", Gameweek: 5, FixtureIndex: 1, Outcome: prediction.OutcomeAway},
	}
}

func bodiesByRecipient(msgs []PushMessage) map[string]PushMessage {
	out := make(map[string]PushMessage, len(msgs))
	for _, msg := range msgs {
		for _, r := range msg.Recipients {
			out[r] = msg
		}
	}
	return out
}

func TestLiveSyncService_MatchLifecycle(t *testing.T) {
	t.Parallel()

	h := newLiveSyncHarness(t, singleFixture(), twoPicks(), LiveSyncConfig{})

	// Kick-off seen for the first time.
	h.provider.set(100, liveMatch(100, "IN_PLAY", 0, 0))
	result := h.next(t)
	if result.Status != RunStatusCompleted || result.Events[string(notification.EventJustKickedOff)] != 1 {
		t.Fatalf("unexpected kickoff result: %+v", result)
	}
	state, ok := h.state(t, 100)
	if !ok || state.LastNotifiedStatus != livescore.StatusInPlay {
		t.Fatalf("unexpected state after kickoff: %+v ok=%v", state, ok)
	}
	if msgs := h.push.messages(); len(msgs) != 2 || msgs[0].Title != "Kick-off: Arsenal vs Chelsea" {
		t.Fatalf("unexpected kickoff pushes: %+v", msgs)
	}

	// Goal.
	h.provider.set(100, liveMatch(100, "IN_PLAY", 1, 0))
	result = h.next(t)
	if result.Events[string(notification.EventScoreChanged)] != 1 || result.Notifications.Sent != 2 {
		t.Fatalf("unexpected goal result: %+v", result)
	}
	state, _ = h.state(t, 100)
	if state.LastNotifiedHome != 1 || state.LastNotifiedAway != 0 {
		t.Fatalf("unexpected state after goal: %+v", state)
	}

	// Full time, personalised per pick, closes the gameweek.
	h.provider.set(100, liveMatch(100, "FINISHED", 1, 0))
	result = h.next(t)
	if result.Events[string(notification.EventJustFinished)] != 1 {
		t.Fatalf("unexpected full time events: %+v", result.Events)
	}
	state, _ = h.state(t, 100)
	if state.LastNotifiedStatus != livescore.StatusFinished {
		t.Fatalf("unexpected state after full time: %+v", state)
	}
	byToken := bodiesByRecipient(h.push.messages())
	if len(h.push.messages()) != 4 {
		t.Fatalf("expected 2 finals and 2 summaries, got=%d", len(h.push.messages()))
	}
	if result.GameweekReport == nil || !result.GameweekReport.SentinelWritten {
		t.Fatalf("gameweek summary not recorded: %+v", result.GameweekReport)
	}
	if byToken["p1"].Body != "You got 1/1 picks right." || byToken["p2"].Body != "You got 0/1 picks right." {
		t.Fatalf("unexpected summaries: p1=%q p2=%q", byToken["p1"].Body, byToken["p2"].Body)
	}

	// Nothing left to say; the finished match is not fetched again.
	calls := h.provider.callCount(100)
	result = h.next(t)
	if h.provider.callCount(100) != calls {
		t.Fatalf("finished match fetched again")
	}
	if len(h.push.messages()) != 0 || !result.GameweekReport.AlreadyNotified {
		t.Fatalf("unexpected pushes after completion: %+v", h.push.messages())
	}
}

func TestLiveSyncService_FinalCopyIsPersonalised(t *testing.T) {
	t.Parallel()

	h := newLiveSyncHarness(t, singleFixture(), twoPicks(), LiveSyncConfig{})
	_ = h.states.Upsert(context.Background(), notification.State{Key: "100", LastNotifiedHome: 1, LastNotifiedStatus: livescore.StatusInPlay})
	h.provider.set(100, liveMatch(100, "FINISHED", 1, 0))

	h.next(t)
	finals := make(map[string]string)
	for _, msg := range h.push.messages() {
		if msg.Data["type"] == string(notification.EventJustFinished) {
			finals[msg.Recipients[0]] = msg.Body
		}
	}
	if finals["p1"] != "You called it! Your pick was correct." || finals["p2"] != "Not this time. Your pick missed." {
		t.Fatalf("unexpected final bodies: %v", finals)
	}
}

func TestLiveSyncService_RateLimitedMatchIsLeftAlone(t *testing.T) {
	t.Parallel()

	fixtures := append(singleFixture(), fixture.Fixture{
		ExternalMatchID: 101, Gameweek: 5, FixtureIndex: 2,
		HomeTeam: "Liverpool", AwayTeam: "Everton",
		KickoffAt: harnessStart.Truncate(time.Hour), Status: "SCHEDULED",
	})
	h := newLiveSyncHarness(t, fixtures, twoPicks(), LiveSyncConfig{})
	// 100 has no canned payload: the stub answers nil, nil as a 429 would.
	h.provider.set(101, liveMatch(101, "IN_PLAY", 1, 0))

	result := h.next(t)
	if result.ProviderSkipped != 1 || result.FixturesPolled != 2 || result.ScoresWritten != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	stored, _ := h.scores.GetByMatchIDs(context.Background(), []int64{100, 101})
	if _, ok := stored[100]; ok {
		t.Fatalf("rate limited match must not be written")
	}
	if _, ok := h.state(t, 100); ok {
		t.Fatalf("rate limited match must not get a state")
	}
	if state, ok := h.state(t, 101); !ok || state.LastNotifiedHome != 1 {
		t.Fatalf("next fixture not processed: %+v", state)
	}

	h.provider.fail(101, fmt.Errorf("%w: 503", ErrProviderTransient))
	result = h.next(t)
	if result.ProviderSkipped != 2 {
		t.Fatalf("unexpected skipped count got=%d want=2", result.ProviderSkipped)
	}
}

func TestLiveSyncService_SecondTriggerInsideIntervalSkips(t *testing.T) {
	t.Parallel()

	h := newLiveSyncHarness(t, singleFixture(), twoPicks(), LiveSyncConfig{})
	h.provider.set(100, liveMatch(100, "IN_PLAY", 0, 0))
	h.next(t)
	before, _ := h.state(t, 100)

	h.clock.Advance(10 * time.Second)
	h.provider.set(100, liveMatch(100, "IN_PLAY", 1, 0))
	result, err := h.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Status != RunStatusSkipped {
		t.Fatalf("unexpected status got=%s want=%s", result.Status, RunStatusSkipped)
	}
	if h.provider.callCount(100) != 1 {
		t.Fatalf("skipped run must not poll, calls=%d", h.provider.callCount(100))
	}
	after, _ := h.state(t, 100)
	if after != before {
		t.Fatalf("skipped run mutated state: before=%+v after=%+v", before, after)
	}
}

func TestLiveSyncService_GenericKickoffBucket(t *testing.T) {
	t.Parallel()

	kickoff := harnessStart.Truncate(time.Hour)
	fixtures := []fixture.Fixture{
		{ExternalMatchID: 100, Gameweek: 5, FixtureIndex: 1, HomeTeam: "Arsenal", AwayTeam: "Chelsea", KickoffAt: kickoff},
		{ExternalMatchID: 101, Gameweek: 5, FixtureIndex: 2, HomeTeam: "Liverpool", AwayTeam: "Everton", KickoffAt: kickoff},
		{ExternalMatchID: 102, Gameweek: 5, FixtureIndex: 3, HomeTeam: "Wolves", AwayTeam: "Brighton", KickoffAt: kickoff},
	}
	picks := []prediction.Prediction{
		{UserID: "u1", Gameweek: 5, FixtureIndex: 1, Outcome: prediction.OutcomeHome},
		{UserID: "u1", Gameweek: 5, FixtureIndex: 2, Outcome: prediction.OutcomeHome},
		{UserID: "u2", Gameweek: 5, FixtureIndex: 3, Outcome: prediction.OutcomeDraw},
	}
	h := newLiveSyncHarness(t, fixtures, picks, LiveSyncConfig{})
	for _, fx := range fixtures {
		h.provider.set(fx.ExternalMatchID, liveMatch(fx.ExternalMatchID, "IN_PLAY", 0, 0))
	}

	result := h.next(t)
	msgs := h.push.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected one push per user, got=%d", len(msgs))
	}
	for _, msg := range msgs {
		if msg.Title != "3 games starting" {
			t.Fatalf("unexpected generic title: %q", msg.Title)
		}
	}
	if len(h.logs.Entries()) != 3 {
		t.Fatalf("each (match, user) kickoff must be logged, got=%d", len(h.logs.Entries()))
	}
	if result.StatesUpdated != 3 {
		t.Fatalf("unexpected states updated got=%d want=3", result.StatesUpdated)
	}
}

func TestLiveSyncService_KickoffBucketAudienceFailureCountsEveryMatch(t *testing.T) {
	t.Parallel()

	kickoff := harnessStart.Truncate(time.Hour)
	fixtures := []fixture.Fixture{
		{ExternalMatchID: 100, Gameweek: 5, FixtureIndex: 1, HomeTeam: "Arsenal", AwayTeam: "Chelsea", KickoffAt: kickoff},
		{ExternalMatchID: 101, Gameweek: 5, FixtureIndex: 2, HomeTeam: "Liverpool", AwayTeam: "Everton", KickoffAt: kickoff},
		{ExternalMatchID: 102, Gameweek: 5, FixtureIndex: 3, HomeTeam: "Wolves", AwayTeam: "Brighton", KickoffAt: kickoff},
	}
	h := newLiveSyncHarness(t, fixtures, nil, LiveSyncConfig{})
	h.svc.data.PredictionSources = []prediction.Source{&countingPredictionSource{
		Source: memory.NewPredictionSource("predictions", nil),
		err:    fmt.Errorf("connection refused"),
	}}
	for _, fx := range fixtures {
		h.provider.set(fx.ExternalMatchID, liveMatch(fx.ExternalMatchID, "IN_PLAY", 0, 0))
	}

	result := h.next(t)
	if result.MatchFailures != 3 || result.StatesUpdated != 0 {
		t.Fatalf("unexpected result: failures=%d states=%d", result.MatchFailures, result.StatesUpdated)
	}
	if len(h.push.messages()) != 0 {
		t.Fatalf("no push expected without an audience, got=%d", len(h.push.messages()))
	}
}

func TestLiveSyncService_FailedDeliveryKeepsStateForRetry(t *testing.T) {
	t.Parallel()

	h := newLiveSyncHarness(t, singleFixture(), twoPicks(), LiveSyncConfig{})
	_ = h.states.Upsert(context.Background(), notification.State{Key: "100", LastNotifiedStatus: livescore.StatusInPlay})
	h.provider.set(100, liveMatch(100, "IN_PLAY", 1, 0))
	h.push.rejectErrors = []string{"provider down"}

	result := h.next(t)
	if result.Notifications.Failed != 2 || result.StatesUpdated != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if state, _ := h.state(t, 100); state.LastNotifiedHome != 0 {
		t.Fatalf("state advanced despite failures: %+v", state)
	}

	h.push.rejectErrors = nil
	result = h.next(t)
	if result.Notifications.Sent != 2 || result.StatesUpdated != 1 {
		t.Fatalf("unexpected retry result: %+v", result)
	}
}

func TestLiveSyncService_DeviceErrorsDoNotResend(t *testing.T) {
	t.Parallel()

	h := newLiveSyncHarness(t, singleFixture(), twoPicks(), LiveSyncConfig{})
	_ = h.states.Upsert(context.Background(), notification.State{Key: "100", LastNotifiedStatus: livescore.StatusInPlay})
	h.provider.set(100, liveMatch(100, "IN_PLAY", 1, 0))
	h.push.deviceErrors = []string{"invalid_player_ids: stale"}

	result := h.next(t)
	if result.Notifications.Sent != 2 || result.Notifications.Partial != 2 || result.Notifications.Failed != 0 {
		t.Fatalf("unexpected first cycle: %+v", result.Notifications)
	}
	if state, _ := h.state(t, 100); state.LastNotifiedHome != 1 || result.StatesUpdated != 1 {
		t.Fatalf("state not advanced after delivery: %+v", state)
	}

	for cycle := 2; cycle <= 3; cycle++ {
		result = h.next(t)
		if len(h.push.messages()) != 0 || result.Notifications.Failed != 0 {
			t.Fatalf("cycle %d resent the goal: pushes=%d report=%+v", cycle, len(h.push.messages()), result.Notifications)
		}
	}
}

func TestLiveSyncService_GoalAfterDisallowedGoalIsSent(t *testing.T) {
	t.Parallel()

	h := newLiveSyncHarness(t, singleFixture(), twoPicks(), LiveSyncConfig{})
	for i, score := range [][2]int{{0, 0}, {1, 0}, {0, 0}, {1, 0}} {
		h.provider.set(100, liveMatch(100, "IN_PLAY", score[0], score[1]))
		result := h.next(t)
		if i == 0 {
			continue
		}
		if result.Events[string(notification.EventScoreChanged)] != 1 {
			t.Fatalf("cycle %d: unexpected events %v", i, result.Events)
		}
		if result.Notifications.Sent != 2 || result.Notifications.Duplicate != 0 {
			t.Fatalf("cycle %d: score %d-%d not pushed: %+v", i, score[0], score[1], result.Notifications)
		}
	}
}

func TestLiveSyncService_NoAudienceStillAdvancesState(t *testing.T) {
	t.Parallel()

	h := newLiveSyncHarness(t, singleFixture(), nil, LiveSyncConfig{})
	h.provider.set(100, liveMatch(100, "IN_PLAY", 2, 0))

	result := h.next(t)
	if result.StatesUpdated != 1 || len(h.push.messages()) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if state, ok := h.state(t, 100); !ok || state.LastNotifiedHome != 2 {
		t.Fatalf("state not advanced: %+v", state)
	}
}

func TestLiveSyncService_SchedulesNextRunWhileLive(t *testing.T) {
	t.Parallel()

	h := newLiveSyncHarness(t, singleFixture(), twoPicks(), LiveSyncConfig{ScheduleNext: true, LiveInterval: time.Minute})
	h.provider.set(100, liveMatch(100, "IN_PLAY", 0, 0))

	result := h.next(t)
	if !result.NextRunQueued {
		t.Fatalf("expected next run queued")
	}
	if len(h.queue.calls) != 1 || h.queue.delay[0] != time.Minute {
		t.Fatalf("unexpected queue calls: %v %v", h.queue.calls, h.queue.delay)
	}
	want := LiveSyncJobPath + "|live-scores-gw5-20260307T150300Z"
	if h.queue.calls[0] != want {
		t.Fatalf("unexpected queue call got=%s want=%s", h.queue.calls[0], want)
	}
}

func TestLiveSyncService_OrphanScoresCounted(t *testing.T) {
	t.Parallel()

	h := newLiveSyncHarness(t, singleFixture(), nil, LiveSyncConfig{})
	_ = h.scores.Upsert(context.Background(), livescore.LiveScore{ExternalMatchID: 999, Gameweek: 5, Status: livescore.StatusFinished})

	result := h.next(t)
	if result.OrphanScores != 1 {
		t.Fatalf("unexpected orphan count got=%d want=1", result.OrphanScores)
	}
}

func TestDedupKey(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 2, 25, 4, 25, 37, 0, time.UTC)
	if got := dedupKey("live-scores", "gw 5/a", at, time.Minute); got != "live-scores-gw-5-a-20260225T042500Z" {
		t.Fatalf("unexpected dedup key: %s", got)
	}
	if got := dedupKey("", "", at, 0); got != "unknown-unknown-20260225T042500Z" {
		t.Fatalf("unexpected dedup key for empty parts: %s", got)
	}
}
