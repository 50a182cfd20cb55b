package broadcast

import (
	"strings"
	"time"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 16
	defaultPacing    = 100 * time.Millisecond
	defaultSendTO    = 30 * time.Second
	defaultLinkLabel = "Open"
	defaultStatusMax = 200
	defaultStatusTTL = 24 * time.Hour
)

var (
	defaultUnreachablePhrases = []string{"deactivated", "chat not found", "blocked by the user"}
	defaultHardFailureCodes   = []int{400, 403}
	defaultPrimaryLocales     = []string{"ru"}
)

type Config struct {
	Workers   int
	QueueSize int

	// PacingInterval is slept between two consecutive sends of a run.
	PacingInterval time.Duration
	SendTimeout    time.Duration

	UnreachablePhrases []string
	HardFailureCodes   []int
	PrimaryLocales     []string

	PlaceholderPhotoURL string
	LinkLabel           string

	// OwnerIDs may broadcast to any tenant.
	OwnerIDs []int64

	StatusMax int
	StatusTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.PacingInterval <= 0 {
		c.PacingInterval = defaultPacing
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTO
	}
	if len(c.UnreachablePhrases) == 0 {
		c.UnreachablePhrases = defaultUnreachablePhrases
	}
	if len(c.HardFailureCodes) == 0 {
		c.HardFailureCodes = defaultHardFailureCodes
	}
	if len(c.PrimaryLocales) == 0 {
		c.PrimaryLocales = defaultPrimaryLocales
	}
	if strings.TrimSpace(c.LinkLabel) == "" {
		c.LinkLabel = defaultLinkLabel
	}
	if c.StatusMax <= 0 {
		c.StatusMax = defaultStatusMax
	}
	if c.StatusTTL <= 0 {
		c.StatusTTL = defaultStatusTTL
	}
	return c
}

func (c Config) hardCodes() map[int]bool {
	m := make(map[int]bool, len(c.HardFailureCodes))
	for _, code := range c.HardFailureCodes {
		m[code] = true
	}
	return m
}

func (c Config) primaryLocales() map[string]bool {
	m := make(map[string]bool, len(c.PrimaryLocales))
	for _, l := range c.PrimaryLocales {
		m[normalizeLocale(l)] = true
	}
	return m
}
