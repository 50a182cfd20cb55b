package app

import (
	"context"
	"fmt"
	"time"

	"castbot/internal/broadcast"
	"castbot/internal/eventbus"
	kit "castbot/internal/transport"
	"castbot/pkg/logx"
)

// eventLoop logs bus events and tells initiators about queued runs that
// ended without a summary: a denied initiator or an aborted run.
func eventLoop(ctx context.Context, events <-chan eventbus.Event, sender kit.Sender, log logx.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			// debug level: a busy run emits one event per removed recipient
			log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))

			ev, ok := e.Data.(broadcast.RunEvent)
			if !ok || ev.JobID == "" {
				continue
			}
			if text := abortNotice(e.Type, ev); text != "" {
				notify(ctx, sender, ev.InitiatorID, text, log)
			}
		}
	}
}

func abortNotice(typ string, ev broadcast.RunEvent) string {
	switch {
	case typ == broadcast.EventDenied:
		return fmt.Sprintf("Broadcast %s rejected: you do not administer %s.", ev.JobID, ev.TenantID)
	case typ == broadcast.EventFinished && ev.Err != "":
		return fmt.Sprintf("Broadcast %s to %s was aborted: %s", ev.JobID, ev.TenantID, ev.Err)
	}
	return ""
}

func notify(ctx context.Context, sender kit.Sender, userID int64, text string, log logx.Logger) {
	if sender == nil || userID == 0 {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := sender.SendText(sctx, kit.ChatTarget{ChatID: userID}, text, &kit.SendOptions{DisablePreview: true}); err != nil {
		log.Warn("initiator notice failed", logx.Int64("user", userID), logx.Err(err))
	}
}
