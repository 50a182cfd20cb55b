package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lets deployments keep secrets out of the config file.
type envOverrides struct {
	TelegramToken string  `env:"CASTBOT_TELEGRAM_TOKEN"`
	OwnerUserIDs  []int64 `env:"CASTBOT_OWNER_USER_IDS" envSeparator:","`
	StorageDriver string  `env:"CASTBOT_STORAGE_DRIVER"`
	StorageDSN    string  `env:"CASTBOT_STORAGE_DSN"`
	StoragePath   string  `env:"CASTBOT_STORAGE_PATH"`
	LogLevel      string  `env:"CASTBOT_LOG_LEVEL"`
	MetricsToken  string  `env:"CASTBOT_METRICS_TOKEN"`
}

// ApplyEnv overwrites cfg fields for every CASTBOT_* variable that is set.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Telegram.Token, o.TelegramToken)
	set(&cfg.Storage.Driver, o.StorageDriver)
	set(&cfg.Storage.DSN, o.StorageDSN)
	set(&cfg.Storage.Path, o.StoragePath)
	set(&cfg.Logging.Level, o.LogLevel)
	set(&cfg.Observability.Token, o.MetricsToken)
	if len(o.OwnerUserIDs) > 0 {
		cfg.Telegram.OwnerUserIDs = o.OwnerUserIDs
	}
	return nil
}
