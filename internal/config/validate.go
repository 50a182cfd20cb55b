package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var knownKinds = map[string]bool{"photo": true, "video": true, "post": true}

// Validate checks what can be checked without touching the network.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required (or CASTBOT_TELEGRAM_TOKEN)"))
	}
	if _, err := ParseDuration("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path is required for sqlite"))
		}
	case "postgres", "postgresql":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", cfg.Storage.Driver))
	}
	if _, err := ParseDuration("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		errs = append(errs, err)
	}

	b := cfg.Broadcast
	for path, raw := range map[string]string{
		"broadcast.pacing_interval": b.PacingInterval,
		"broadcast.send_timeout":    b.SendTimeout,
		"broadcast.status_ttl":      b.StatusTTL,
	} {
		if _, err := ParseDuration(path, raw); err != nil {
			errs = append(errs, err)
		}
	}
	if b.Workers < 0 || b.QueueSize < 0 || b.StatusMax < 0 {
		errs = append(errs, errors.New("broadcast: workers, queue_size and status_max must be >= 0"))
	}
	if p := strings.TrimSpace(b.PlaceholderPhotoURL); p != "" {
		if u, err := url.Parse(p); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("broadcast.placeholder_photo_url %q is not an absolute url", p))
		}
	}
	for _, c := range b.HardFailureCodes {
		if c < 100 || c > 599 {
			errs = append(errs, fmt.Errorf("broadcast.hard_failure_codes: %d is not a status code", c))
		}
	}

	names := map[string]bool{}
	for i, s := range cfg.Schedules {
		at := fmt.Sprintf("schedules[%d]", i)
		switch {
		case strings.TrimSpace(s.Name) == "":
			errs = append(errs, fmt.Errorf("%s: name is required", at))
		case names[s.Name]:
			errs = append(errs, fmt.Errorf("%s: duplicate name %q", at, s.Name))
		}
		names[s.Name] = true
		if strings.TrimSpace(s.Spec) == "" {
			errs = append(errs, fmt.Errorf("%s: spec is required", at))
		}
		if strings.TrimSpace(s.Tenant) == "" {
			errs = append(errs, fmt.Errorf("%s: tenant is required", at))
		}
		if s.InitiatorID == 0 {
			errs = append(errs, fmt.Errorf("%s: initiator_id is required", at))
		}
		if !knownKinds[strings.ToLower(s.Kind)] {
			errs = append(errs, fmt.Errorf("%s: kind %q must be photo, video or post", at, s.Kind))
		}
	}

	o := cfg.Observability
	for path, raw := range map[string]string{
		"observability.read_timeout":  o.ReadTimeout,
		"observability.write_timeout": o.WriteTimeout,
		"observability.idle_timeout":  o.IdleTimeout,
	} {
		if _, err := ParseDuration(path, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
