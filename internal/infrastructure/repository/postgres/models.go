package postgres

import (
	"database/sql"
	"time"
)

type fixtureTableModel struct {
	ExternalMatchID int64          `db:"external_match_id"`
	Gameweek        int            `db:"gameweek"`
	FixtureIndex    sql.NullInt64  `db:"fixture_index"`
	HomeTeam        sql.NullString `db:"home_team"`
	AwayTeam        sql.NullString `db:"away_team"`
	KickoffAt       sql.NullTime   `db:"kickoff_at"`
	Status          sql.NullString `db:"status"`
}

type liveScoreTableModel struct {
	ExternalMatchID int64          `db:"external_match_id"`
	Gameweek        int            `db:"gameweek"`
	FixtureIndex    int            `db:"fixture_index"`
	HomeTeam        string         `db:"home_team"`
	AwayTeam        string         `db:"away_team"`
	HomeScore       int            `db:"home_score"`
	AwayScore       int            `db:"away_score"`
	Status          string         `db:"status"`
	ProviderStatus  sql.NullString `db:"provider_status"`
	Minute          sql.NullInt64  `db:"minute"`
	Goals           []byte         `db:"goals"`
	RedCards        []byte         `db:"red_cards"`
	KickoffAt       sql.NullTime   `db:"kickoff_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type liveScoreUpsertModel struct {
	ExternalMatchID int64          `db:"external_match_id"`
	Gameweek        int            `db:"gameweek"`
	FixtureIndex    int            `db:"fixture_index"`
	HomeTeam        string         `db:"home_team"`
	AwayTeam        string         `db:"away_team"`
	HomeScore       int            `db:"home_score"`
	AwayScore       int            `db:"away_score"`
	Status          string         `db:"status"`
	ProviderStatus  sql.NullString `db:"provider_status"`
	Minute          sql.NullInt64  `db:"minute"`
	Goals           string         `db:"goals"`
	RedCards        string         `db:"red_cards"`
	KickoffAt       sql.NullTime   `db:"kickoff_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type notificationStateTableModel struct {
	StateKey           string    `db:"state_key"`
	LastNotifiedHome   int       `db:"last_notified_home"`
	LastNotifiedAway   int       `db:"last_notified_away"`
	LastNotifiedStatus string    `db:"last_notified_status"`
	LastNotifiedAt     time.Time `db:"last_notified_at"`
}

type notificationLogInsertModel struct {
	EventID                string         `db:"event_id"`
	UserID                 string         `db:"user_id"`
	StateKey               string         `db:"state_key"`
	Kind                   string         `db:"kind"`
	Title                  string         `db:"title"`
	Body                   string         `db:"body"`
	Accepted               bool           `db:"accepted"`
	ProviderNotificationID sql.NullString `db:"provider_notification_id"`
	ProviderRecipients     int            `db:"provider_recipients"`
	LastError              sql.NullString `db:"last_error"`
	SentAt                 time.Time      `db:"sent_at"`
	TraceID                sql.NullString `db:"trace_id"`
	SpanID                 sql.NullString `db:"span_id"`
}

type predictionTableModel struct {
	UserID       string `db:"user_id"`
	Gameweek     int    `db:"gameweek"`
	FixtureIndex int    `db:"fixture_index"`
	Outcome      string `db:"outcome"`
}

type pushSubscriptionTableModel struct {
	UserID        string         `db:"user_id"`
	DeviceToken   sql.NullString `db:"device_token"`
	IsActive      bool           `db:"is_active"`
	Subscribed    bool           `db:"subscribed"`
	Invalid       bool           `db:"invalid"`
	LastCheckedAt sql.NullTime   `db:"last_checked_at"`
	LastActiveAt  sql.NullTime   `db:"last_active_at"`
}

type runLockTableModel struct {
	Name         string    `db:"name"`
	LastPollTime time.Time `db:"last_poll_time"`
}
