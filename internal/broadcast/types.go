package broadcast

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"castbot/internal/storage"
	kit "castbot/internal/transport"
)

type ContentKind string

const (
	KindPhoto ContentKind = "photo"
	KindVideo ContentKind = "video"
	KindPost  ContentKind = "post"
)

func ParseKind(s string) (ContentKind, error) {
	switch k := ContentKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPhoto, KindVideo, KindPost:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown content kind %q", ErrInvalidRequest, s)
}

// Caption holds the primary-locale text and the text for everyone else.
type Caption struct {
	Primary  string
	Fallback string
}

// For picks Primary when locale is one of the primary locales, Fallback
// otherwise. An empty pick falls back to the other text.
func (c Caption) For(locale string, primary map[string]bool) string {
	if primary[normalizeLocale(locale)] {
		if c.Primary != "" {
			return c.Primary
		}
		return c.Fallback
	}
	if c.Fallback != "" {
		return c.Fallback
	}
	return c.Primary
}

// normalizeLocale maps "ru-RU", "ru_RU" and "RU" to "ru".
func normalizeLocale(l string) string {
	l = strings.ToLower(strings.TrimSpace(l))
	if i := strings.IndexAny(l, "-_"); i >= 0 {
		l = l[:i]
	}
	return l
}

// Content is the payload of one run. Photo and video carry Media, post
// carries Link; exactly one of the two is set.
type Content struct {
	Kind      ContentKind
	Media     string
	Link      string
	LinkLabel string
	Caption   Caption
}

func (c Content) Validate() error {
	media := strings.TrimSpace(c.Media)
	link := strings.TrimSpace(c.Link)
	switch c.Kind {
	case KindPhoto, KindVideo:
		if link != "" {
			return fmt.Errorf("%w: %s content must not carry a link", ErrInvalidRequest, c.Kind)
		}
		// an empty photo reference degrades to the placeholder later
		if media == "" && c.Kind == KindVideo {
			return fmt.Errorf("%w: video reference is required", ErrInvalidRequest)
		}
	case KindPost:
		if media != "" {
			return fmt.Errorf("%w: post content must not carry media", ErrInvalidRequest)
		}
		u, err := url.Parse(link)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: post link %q is not an http(s) url", ErrInvalidRequest, c.Link)
		}
		if c.Caption.Primary == "" && c.Caption.Fallback == "" {
			return fmt.Errorf("%w: post text is required", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown content kind %q", ErrInvalidRequest, c.Kind)
	}
	return nil
}

// Request describes one run. TestMode sends only to TestRecipientID (or the
// initiator when unset) and never writes to the directory.
type Request struct {
	TenantID        string
	InitiatorID     int64
	Content         Content
	TestMode        bool
	TestRecipientID int64
	// Source tags logs and job status ("command", "schedule").
	Source string
}

type OutcomeKind int

const (
	Sent OutcomeKind = iota
	SoftFailed
	HardFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case Sent:
		return "sent"
	case SoftFailed:
		return "soft_failed"
	case HardFailed:
		return "hard_failed"
	}
	return "unknown"
}

// Outcome is the classified result of one send. Code is the transport's
// status code, zero for unstructured errors.
type Outcome struct {
	Kind   OutcomeKind
	Code   int
	Reason string
}

type RunSummary struct {
	SuccessCount int
	FailureCount int

	Total             int
	Removed           int
	MarkedUnreachable int
	MediaDegraded     bool
	MediaUnverified   bool
	TestMode          bool
	// Interrupted is set when shutdown stopped the loop early.
	Interrupted bool
	Took        time.Duration
}

// JobStatus is the in-memory view of a queued run.
type JobStatus struct {
	ID          string
	TenantID    string
	InitiatorID int64
	Kind        ContentKind
	Source      string
	TestMode    bool
	Total       int
	Sent        int
	Failed      int
	CreatedAt   time.Time
	StartedAt   time.Time
	DoneAt      time.Time
	Running     bool
	Err         string
	Summary     *RunSummary
}

// Directory is the recipient directory as seen by the engine.
type Directory interface {
	Recipients(ctx context.Context, tenantID string) ([]storage.Recipient, error)
	Recipient(ctx context.Context, tenantID string, id int64) (storage.Recipient, bool, error)
	IsTenantAdmin(ctx context.Context, tenantID string, userID int64) (bool, error)
	SetReachable(ctx context.Context, tenantID string, id int64, reachable bool) error
	DeleteRecipient(ctx context.Context, tenantID string, id int64) error
}

type AuditLog interface {
	AppendAudit(ctx context.Context, e storage.AuditEntry) error
}

type Transport interface {
	kit.Sender
	kit.FileServer
}
