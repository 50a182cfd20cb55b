package config

import (
	"reflect"

	"castbot/pkg/logx"
)

// SummarizeChange lists the top-level sections that differ between two
// configs, plus log fields that are safe to print (never tokens or DSNs).
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		fields  []logx.Field
	)
	if oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout ||
		!reflect.DeepEqual(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) ||
		oldCfg.Telegram.Token != newCfg.Telegram.Token {
		changed = append(changed, "telegram")
		fields = append(fields, logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)))
	}
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		fields = append(fields, logx.String("logging.level", newCfg.Logging.Level))
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		fields = append(fields, logx.String("storage.driver", newCfg.Storage.Driver))
	}
	if !reflect.DeepEqual(oldCfg.Broadcast, newCfg.Broadcast) {
		changed = append(changed, "broadcast")
		fields = append(fields,
			logx.String("broadcast.pacing_interval", newCfg.Broadcast.PacingInterval),
			logx.Int("broadcast.workers", newCfg.Broadcast.Workers),
		)
	}
	if !reflect.DeepEqual(oldCfg.Schedules, newCfg.Schedules) {
		changed = append(changed, "schedules")
		fields = append(fields, logx.Int("schedules.count", len(newCfg.Schedules)))
	}
	if !reflect.DeepEqual(oldCfg.Observability, newCfg.Observability) {
		changed = append(changed, "observability")
		fields = append(fields, logx.Bool("observability.enabled", newCfg.Observability.Enabled))
	}
	return changed, fields
}
