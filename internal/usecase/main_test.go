package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// ants starts a package-level default pool on import.
		goleak.IgnoreAnyFunction("github.com/panjf2000/ants/v2.(*poolCommon).purgeStaleWorkers"),
		goleak.IgnoreAnyFunction("github.com/panjf2000/ants/v2.(*poolCommon).ticktock"),
	)
}

func intPtr(v int) *int {
	return &v
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// stubScoreProvider serves canned payloads per match id and counts calls.
type stubScoreProvider struct {
	mu       sync.Mutex
	payloads map[int64]*ExternalMatch
	errs     map[int64]error
	calls    map[int64]int
}

func newStubScoreProvider() *stubScoreProvider {
	return &stubScoreProvider{
		payloads: make(map[int64]*ExternalMatch),
		errs:     make(map[int64]error),
		calls:    make(map[int64]int),
	}
}

func (s *stubScoreProvider) set(matchID int64, payload *ExternalMatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[matchID] = payload
	delete(s.errs, matchID)
}

func (s *stubScoreProvider) fail(matchID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[matchID] = err
}

func (s *stubScoreProvider) FetchMatch(_ context.Context, matchID int64) (*ExternalMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[matchID]++
	if err, ok := s.errs[matchID]; ok {
		return nil, err
	}
	payload, ok := s.payloads[matchID]
	if !ok || payload == nil {
		return nil, nil
	}
	copied := *payload
	return &copied, nil
}

func (s *stubScoreProvider) callCount(matchID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[matchID]
}

// stubPushProvider accepts every send unless sendErr or rejectErrors is set.
// deviceErrors keeps the notification id but reports refused devices.
type stubPushProvider struct {
	mu           sync.Mutex
	sent         []PushMessage
	sendErr      error
	rejectErrors []string
	deviceErrors []string
	invalid      []string
	recipients   int
	player       PushPlayer
	playerErr    error
	playerCalls  int
}

func (s *stubPushProvider) SendNotification(_ context.Context, msg PushMessage) (PushResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	if s.sendErr != nil {
		return PushResponse{}, s.sendErr
	}
	if len(s.rejectErrors) > 0 {
		return PushResponse{Errors: s.rejectErrors}, nil
	}
	recipients := s.recipients
	if recipients == 0 {
		recipients = len(msg.Recipients)
	}
	return PushResponse{
		NotificationID:    "notif-" + msg.Title,
		Recipients:        recipients,
		Errors:            s.deviceErrors,
		InvalidRecipients: s.invalid,
	}, nil
}

func (s *stubPushProvider) GetPlayer(_ context.Context, playerID string) (PushPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerCalls++
	if s.playerErr != nil {
		return PushPlayer{}, s.playerErr
	}
	player := s.player
	player.Identifier = playerID
	return player, nil
}

func (s *stubPushProvider) messages() []PushMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PushMessage(nil), s.sent...)
}

func (s *stubPushProvider) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}
