package app

import (
	"time"

	"castbot/internal/broadcast"
	"castbot/internal/config"
	"castbot/internal/observability"
	"castbot/internal/storage"
	telegram "castbot/internal/transport/telegram/adapter"
	"castbot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		Pretty:  l.Pretty,
		File: logx.FileConfig{
			Enabled: l.File.Enabled,
			Path:    l.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			ChatID:     l.Telegram.ChatID,
			ThreadID:   l.Telegram.ThreadID,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

func mapAdapterConfig(cfg *config.Config) (telegram.Config, error) {
	poll, err := config.DurationOr("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:       cfg.Telegram.Token,
		APIURL:      cfg.Telegram.APIURL,
		PollTimeout: poll,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.DurationOr("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:       cfg.Storage.Driver,
		Path:         cfg.Storage.Path,
		DSN:          cfg.Storage.DSN,
		BusyTimeout:  busy,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
	}, nil
}

// mapBroadcastConfig leaves zero values in place; the engine fills its
// own defaults.
func mapBroadcastConfig(cfg *config.Config) (broadcast.Config, error) {
	b := cfg.Broadcast
	pacing, err := config.ParseDuration("broadcast.pacing_interval", b.PacingInterval)
	if err != nil {
		return broadcast.Config{}, err
	}
	sendTO, err := config.ParseDuration("broadcast.send_timeout", b.SendTimeout)
	if err != nil {
		return broadcast.Config{}, err
	}
	ttl, err := config.ParseDuration("broadcast.status_ttl", b.StatusTTL)
	if err != nil {
		return broadcast.Config{}, err
	}
	return broadcast.Config{
		Workers:             b.Workers,
		QueueSize:           b.QueueSize,
		PacingInterval:      pacing,
		SendTimeout:         sendTO,
		UnreachablePhrases:  append([]string(nil), b.UnreachablePhrases...),
		HardFailureCodes:    append([]int(nil), b.HardFailureCodes...),
		PrimaryLocales:      append([]string(nil), b.PrimaryLocales...),
		PlaceholderPhotoURL: b.PlaceholderPhotoURL,
		LinkLabel:           b.LinkLabel,
		OwnerIDs:            append([]int64(nil), cfg.Telegram.OwnerUserIDs...),
		StatusMax:           b.StatusMax,
		StatusTTL:           ttl,
	}, nil
}

func mapObservabilityConfig(cfg *config.Config) (observability.Config, error) {
	o := cfg.Observability
	out := observability.Config{
		Enabled:       o.Enabled,
		Addr:          o.Addr,
		Token:         o.Token,
		AllowInsecure: o.AllowInsecure,
		Pprof:         o.Pprof,
	}
	var err error
	if out.ReadTimeout, err = config.DurationOr("observability.read_timeout", o.ReadTimeout, 10*time.Second); err != nil {
		return observability.Config{}, err
	}
	if out.WriteTimeout, err = config.DurationOr("observability.write_timeout", o.WriteTimeout, 30*time.Second); err != nil {
		return observability.Config{}, err
	}
	if out.IdleTimeout, err = config.DurationOr("observability.idle_timeout", o.IdleTimeout, time.Minute); err != nil {
		return observability.Config{}, err
	}
	return out, nil
}
