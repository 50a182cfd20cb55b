package logx

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type captureSender struct {
	mu    sync.Mutex
	lines []string
	got   chan struct{}
}

func (c *captureSender) SendLog(_ context.Context, _ int64, _ int, text string) error {
	c.mu.Lock()
	c.lines = append(c.lines, text)
	c.mu.Unlock()
	select {
	case c.got <- struct{}{}:
	default:
	}
	return nil
}

func TestFormatOpsLine(t *testing.T) {
	in := []byte(`{"level":"warn","time":"x","message":"send failed","tenant":"promo_bot","code":403}` + "\n")
	got := formatOpsLine(in)
	want := "[WARN] send failed\n- code=403\n- tenant=promo_bot"
	if got != want {
		t.Fatalf("formatOpsLine:\n got %q\nwant %q", got, want)
	}
}

func TestFormatOpsLineNotJSON(t *testing.T) {
	if got := formatOpsLine([]byte("  plain text \n")); got != "plain text" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate(strings.Repeat("a", 20), 12); got != "aaaaaaaaa..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestServiceForwardsWarnings(t *testing.T) {
	snd := &captureSender{got: make(chan struct{}, 1)}
	svc, log := New(Config{
		Level:    "debug",
		Telegram: TelegramConfig{Enabled: true, ChatID: -100, MinLevel: "warn", RatePerSec: 10},
	}, snd)
	defer svc.Close()

	log.Info("ignored")
	log.With(String("comp", "test")).Warn("forwarded")

	select {
	case <-snd.got:
	case <-time.After(2 * time.Second):
		t.Fatal("no ops line delivered")
	}
	snd.mu.Lock()
	defer snd.mu.Unlock()
	if len(snd.lines) != 1 || !strings.HasPrefix(snd.lines[0], "[WARN] forwarded") {
		t.Fatalf("lines=%q", snd.lines)
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	l.Error("nothing happens")
	if Nop().IsZero() {
		t.Fatal("Nop logger is not the zero value")
	}
}
