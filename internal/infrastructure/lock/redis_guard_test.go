package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riskibarqy/livescore-sync/internal/domain/runlock"
)

type fakeRedis struct {
	mu      sync.Mutex
	now     time.Time
	values  map[string]string
	expires map[string]time.Time
	err     error
}

func newFakeRedis(now time.Time) *fakeRedis {
	return &fakeRedis{now: now, values: map[string]string{}, expires: map[string]time.Time{}}
}

func (f *fakeRedis) live(key string) bool {
	exp, ok := f.expires[key]
	return ok && f.now.Before(exp)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if f.live(key) {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	f.expires[key] = f.now.Add(expiration)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.live(key) {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(f.values[key], nil)
}

func (f *fakeRedis) PTTL(_ context.Context, key string) *redis.DurationCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.live(key) {
		return redis.NewDurationResult(-2, nil)
	}
	return redis.NewDurationResult(f.expires[key].Sub(f.now), nil)
}

func (f *fakeRedis) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestRedisGuard_OnlyOneConcurrentClaimWins(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	client := newFakeRedis(now)
	guard := NewRedisGuard(client, "", 50*time.Second, nil)
	guard.now = func() time.Time { return now }

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := guard.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire error: %v", err)
				return
			}
			if got == runlock.ResultAcquired {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Fatalf("unexpected acquired count got=%d want=1", acquired)
	}

	client.advance(51 * time.Second)
	got, err := guard.Acquire(context.Background())
	if err != nil || got != runlock.ResultAcquired {
		t.Fatalf("expected re-acquire after interval, got=%s err=%v", got, err)
	}
}

func TestRedisGuard_Inspect(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	client := newFakeRedis(now)
	guard := NewRedisGuard(client, runlock.LiveScoresLock, time.Minute, nil)
	guard.now = func() time.Time { return now }

	status, err := guard.Inspect(context.Background())
	if err != nil || status.Held {
		t.Fatalf("expected free lock, got=%+v err=%v", status, err)
	}

	if _, err := guard.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	client.advance(15 * time.Second)

	status, err = guard.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect error: %v", err)
	}
	if !status.Held || status.Remaining != 45*time.Second || status.Backend != "redis" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.LastPollTime == nil || !status.LastPollTime.Equal(now) {
		t.Fatalf("unexpected last poll time: %v", status.LastPollTime)
	}
}

func TestRedisGuard_PropagatesErrors(t *testing.T) {
	t.Parallel()

	client := newFakeRedis(time.Now())
	client.err = errors.New("connection refused")
	guard := NewRedisGuard(client, "", time.Minute, nil)

	if _, err := guard.Acquire(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
