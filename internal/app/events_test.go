package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"castbot/internal/broadcast"
	"castbot/internal/eventbus"
	"castbot/pkg/logx"
)

func TestAbortNotice(t *testing.T) {
	ev := broadcast.RunEvent{JobID: "bc-1", TenantID: "promo_bot", InitiatorID: 42}
	if got := abortNotice(broadcast.EventDenied, ev); !strings.Contains(got, "you do not administer promo_bot") {
		t.Fatalf("denied=%q", got)
	}
	if got := abortNotice(broadcast.EventFinished, ev); got != "" {
		t.Fatalf("a finished run with a summary needs no notice: %q", got)
	}
	ev.Err = "media reference unusable and no placeholder configured"
	if got := abortNotice(broadcast.EventFinished, ev); !strings.Contains(got, "was aborted: media reference unusable") {
		t.Fatalf("aborted=%q", got)
	}
	if got := abortNotice(broadcast.EventStarted, ev); got != "" {
		t.Fatalf("started=%q", got)
	}
}

func TestEventLoopNotifiesInitiator(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()
	sink := &textSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eventLoop(ctx, events, sink, logx.Nop())
		close(done)
	}()

	// synchronous Dispatch runs carry no job id and are not announced
	bus.Publish(eventbus.Event{Type: broadcast.EventDenied, Data: broadcast.RunEvent{TenantID: "t", InitiatorID: 5}})
	bus.Publish(eventbus.Event{Type: broadcast.EventDenied, Data: broadcast.RunEvent{JobID: "bc-9", TenantID: "t", InitiatorID: 5}})

	deadline := time.After(2 * time.Second)
	for sink.last() == "" {
		select {
		case <-deadline:
			t.Fatalf("no notice sent")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.texts) != 1 || !strings.Contains(sink.texts[0], "bc-9") {
		t.Fatalf("texts=%q", sink.texts)
	}
}
