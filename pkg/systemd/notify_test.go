package systemd

import (
	"context"
	"testing"
)

func TestNotifyOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	for name, fn := range map[string]func() (bool, error){
		"ready":     Ready,
		"stopping":  Stopping,
		"reloading": Reloading,
	} {
		sent, err := fn()
		if err != nil || sent {
			t.Fatalf("%s: sent=%v err=%v", name, sent, err)
		}
	}
	if err := Watchdog(context.Background()); err != nil {
		t.Fatalf("watchdog without WATCHDOG_USEC: %v", err)
	}
}
