package schedule

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"castbot/internal/broadcast"
	"castbot/internal/config"
	"castbot/pkg/logx"
)

type fakeSubmitter struct {
	mu   sync.Mutex
	reqs []broadcast.Request
	err  error
}

func (f *fakeSubmitter) Submit(req broadcast.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	return "bc-test", nil
}

func weekly() config.ScheduleConfig {
	return config.ScheduleConfig{
		Name:            "weekly-sale",
		Spec:            "0 0 10 * * MON",
		Tenant:          "promo_bot",
		InitiatorID:     42,
		Kind:            "post",
		Link:            "https://example.com/sale",
		Caption:         "Скидки",
		CaptionFallback: "Sale",
	}
}

func TestParseSpec(t *testing.T) {
	for _, ok := range []string{"*/5 * * * *", "0 */10 * * * *", "@daily", "@every 90m"} {
		if _, err := ParseSpec(ok); err != nil {
			t.Fatalf("ParseSpec(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "every day", "61 * * * *"} {
		if _, err := ParseSpec(bad); err == nil {
			t.Fatalf("ParseSpec(%q) accepted", bad)
		}
	}
}

func TestRequestFor(t *testing.T) {
	req, err := RequestFor(weekly())
	if err != nil {
		t.Fatalf("RequestFor: %v", err)
	}
	if req.TenantID != "promo_bot" || req.InitiatorID != 42 || req.Content.Kind != broadcast.KindPost {
		t.Fatalf("req = %+v", req)
	}
	if req.Source != "schedule:weekly-sale" || req.Content.Caption.Fallback != "Sale" {
		t.Fatalf("req = %+v", req)
	}

	d := weekly()
	d.Tenant = ""
	if _, err := RequestFor(d); !errors.Is(err, broadcast.ErrInvalidTenant) {
		t.Fatalf("err = %v", err)
	}
	d = weekly()
	d.Kind = "gif"
	if _, err := RequestFor(d); !errors.Is(err, broadcast.ErrInvalidRequest) {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyRegistersValidSchedules(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(sub, logx.Nop())

	bad := weekly()
	bad.Name = "broken"
	bad.Spec = "not a spec"
	off := weekly()
	off.Name = "off"
	off.Disabled = true

	err := s.Apply([]config.ScheduleConfig{weekly(), bad, off})
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("err = %v", err)
	}
	if err := Validate([]config.ScheduleConfig{bad}); err == nil {
		t.Fatalf("Validate accepted a bad spec")
	}

	s.Start(context.Background())
	defer s.Stop(context.Background())

	entries := s.Entries()
	if len(entries) != 1 || entries[0].Name != "weekly-sale" || entries[0].Next.IsZero() {
		t.Fatalf("entries = %+v", entries)
	}

	// re-apply while running replaces the set
	if err := s.Apply(nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n := len(s.Entries()); n != 0 {
		t.Fatalf("entries after reset = %d", n)
	}
}

func TestFireSubmitsRequest(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(sub, logx.Nop())
	req, err := RequestFor(weekly())
	if err != nil {
		t.Fatalf("RequestFor: %v", err)
	}

	s.fireFunc("weekly-sale", req)()
	sub.err = broadcast.ErrTenantBusy
	s.fireFunc("weekly-sale", req)()

	if len(sub.reqs) != 2 || sub.reqs[0].TenantID != "promo_bot" {
		t.Fatalf("submitted = %+v", sub.reqs)
	}
}
