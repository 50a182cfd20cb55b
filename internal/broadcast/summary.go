package broadcast

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"castbot/internal/storage"
	kit "castbot/internal/transport"
	"castbot/pkg/logx"

	"github.com/go-faster/errors"
)

const summaryTimeout = 10 * time.Second

func summaryText(tenantID string, sum RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Broadcast to %s finished: %d delivered, %d failed.", tenantID, sum.SuccessCount, sum.FailureCount)
	if sum.TestMode {
		b.WriteString("\nTest run: recipient directory left unchanged.")
	}
	switch {
	case sum.MediaUnverified:
		b.WriteString("\nPhoto could not be delivered to you; recipients were sent the original reference.")
	case sum.MediaDegraded:
		b.WriteString("\nPhoto reference was unusable; the placeholder image was sent.")
	}
	if sum.Interrupted {
		fmt.Fprintf(&b, "\nStopped early at shutdown: %d of %d recipients processed.", sum.SuccessCount+sum.FailureCount, sum.Total)
	}
	return b.String()
}

// notifyInitiator sends the completion message. The run has already
// finished, so a failure here is returned for logging only.
func notifyInitiator(ctx context.Context, t kit.Sender, initiatorID int64, text string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryTimeout)
	defer cancel()
	if _, err := t.SendText(ctx, kit.ChatTarget{ChatID: initiatorID}, text, nil); err != nil {
		return errors.Wrapf(ErrSummaryDelivery, "initiator %d: %v", initiatorID, err)
	}
	return nil
}

func (s *Service) complete(ctx context.Context, deps Deps, log logx.Logger, req Request, jobID string, sum RunSummary, start time.Time) {
	if err := notifyInitiator(ctx, deps.Transport, req.InitiatorID, summaryText(req.TenantID, sum)); err != nil {
		log.Warn("run summary not delivered", logx.Err(err))
	}

	if deps.Audit != nil {
		meta := []string{"kind=" + string(req.Content.Kind), "removed=" + strconv.Itoa(sum.Removed)}
		if sum.TestMode {
			meta = append(meta, "test=true")
		}
		if sum.MediaDegraded {
			meta = append(meta, "media_degraded=true")
		}
		if jobID != "" {
			meta = append(meta, "job="+jobID)
		}
		e := storage.AuditEntry{
			ActorID:  req.InitiatorID,
			TenantID: req.TenantID,
			Action:   "broadcast.finished",
			Target:   req.TenantID,
			OK:       sum.SuccessCount,
			Fail:     sum.FailureCount,
			TookMS:   time.Since(start).Milliseconds(),
			Meta:     strings.Join(meta, " "),
		}
		if err := deps.Audit.AppendAudit(context.WithoutCancel(ctx), e); err != nil {
			log.Warn("audit append failed", logx.String("action", e.Action), logx.Err(err))
		}
	}

	result := "completed"
	if sum.Interrupted {
		result = "interrupted"
	}
	deps.Metrics.run(result)
	publish(deps.Bus, EventFinished, RunEvent{JobID: jobID, TenantID: req.TenantID, InitiatorID: req.InitiatorID, Summary: &sum})

	fields := []logx.Field{
		logx.Int("sent", sum.SuccessCount),
		logx.Int("failed", sum.FailureCount),
		logx.Int("removed", sum.Removed),
		logx.Int("unreachable", sum.MarkedUnreachable),
		logx.Duration("dur", sum.Took),
	}
	switch {
	case sum.Interrupted:
		log.Warn("broadcast interrupted", fields...)
	case sum.FailureCount > 0:
		log.Warn("broadcast finished with failures", fields...)
	default:
		log.Info("broadcast finished", fields...)
	}
}
