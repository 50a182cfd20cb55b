// Package config loads castbot's JSON or YAML configuration, applies
// environment overrides and hot-reloads it from disk.
package config

// Config is the whole daemon configuration. Durations are Go duration
// strings ("100ms", "10s", "24h").
type Config struct {
	Telegram      TelegramConfig      `json:"telegram"`
	Logging       LoggingConfig       `json:"logging"`
	Storage       StorageConfig       `json:"storage"`
	Broadcast     BroadcastConfig     `json:"broadcast"`
	Schedules     []ScheduleConfig    `json:"schedules,omitempty"`
	Observability ObservabilityConfig `json:"observability,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	APIURL string `json:"api_url,omitempty"`
	// OwnerUserIDs may broadcast to every tenant.
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	PollTimeout  string  `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	Pretty   bool            `json:"pretty,omitempty"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// StorageConfig selects the recipient directory backend.
//
//	"storage": { "driver": "sqlite", "path": "./data/castbot.db" }
//	"storage": { "driver": "postgres", "dsn": "postgres://castbot@db/castbot?sslmode=disable" }
type StorageConfig struct {
	Driver       string `json:"driver"`
	Path         string `json:"path,omitempty"`
	DSN          string `json:"dsn,omitempty"`
	BusyTimeout  string `json:"busy_timeout,omitempty"`
	MaxOpenConns int    `json:"max_open_conns,omitempty"`
}

// BroadcastConfig tunes the delivery engine. Zero values take defaults:
//   - workers: 2, queue_size: 16
//   - pacing_interval: "100ms", send_timeout: "30s"
//   - unreachable_phrases: deactivated, chat not found, blocked by the user
//   - hard_failure_codes: 400, 403
//   - primary_locales: ru
//   - status_max: 200, status_ttl: "24h"
type BroadcastConfig struct {
	Workers             int      `json:"workers,omitempty"`
	QueueSize           int      `json:"queue_size,omitempty"`
	PacingInterval      string   `json:"pacing_interval,omitempty"`
	SendTimeout         string   `json:"send_timeout,omitempty"`
	UnreachablePhrases  []string `json:"unreachable_phrases,omitempty"`
	HardFailureCodes    []int    `json:"hard_failure_codes,omitempty"`
	PrimaryLocales      []string `json:"primary_locales,omitempty"`
	PlaceholderPhotoURL string   `json:"placeholder_photo_url,omitempty"`
	LinkLabel           string   `json:"link_label,omitempty"`
	StatusMax           int      `json:"status_max,omitempty"`
	StatusTTL           string   `json:"status_ttl,omitempty"`
}

// ScheduleConfig is a broadcast fired on a cron spec.
type ScheduleConfig struct {
	Name            string `json:"name"`
	Spec            string `json:"spec"`
	Tenant          string `json:"tenant"`
	InitiatorID     int64  `json:"initiator_id"`
	Kind            string `json:"kind"`
	Media           string `json:"media,omitempty"`
	Link            string `json:"link,omitempty"`
	LinkLabel       string `json:"link_label,omitempty"`
	Caption         string `json:"caption"`
	CaptionFallback string `json:"caption_fallback,omitempty"`
	Test            bool   `json:"test,omitempty"`
	Disabled        bool   `json:"disabled,omitempty"`
}

// ObservabilityConfig controls the HTTP endpoint serving /healthz,
// /metrics and optionally /debug/pprof/. Bind to loopback or set a token.
type ObservabilityConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
	ReadTimeout   string `json:"read_timeout,omitempty"`
	WriteTimeout  string `json:"write_timeout,omitempty"`
	IdleTimeout   string `json:"idle_timeout,omitempty"`
}
