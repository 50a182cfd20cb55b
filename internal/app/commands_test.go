package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"castbot/internal/broadcast"
	"castbot/internal/schedule"
	kit "castbot/internal/transport"
	"castbot/internal/transport/telegram/router"
)

type fakeBroadcaster struct {
	mu   sync.Mutex
	got  []broadcast.Request
	err  error
	jobs []broadcast.JobStatus
}

func (f *fakeBroadcaster) Submit(req broadcast.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.got = append(f.got, req)
	return "bc-1234", nil
}

func (f *fakeBroadcaster) Status(id string) (broadcast.JobStatus, bool) {
	for _, j := range f.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return broadcast.JobStatus{}, false
}

func (f *fakeBroadcaster) Jobs() []broadcast.JobStatus { return f.jobs }

type fakeSchedules []schedule.Entry

func (f fakeSchedules) Entries() []schedule.Entry { return f }

type textSink struct {
	mu    sync.Mutex
	texts []string
}

func (s *textSink) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	return kit.MessageRef{}, nil
}

func (s *textSink) SendPhoto(context.Context, kit.ChatTarget, kit.Media, string, *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{}, nil
}

func (s *textSink) SendVideo(context.Context, kit.ChatTarget, kit.Media, string, *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{}, nil
}

func (s *textSink) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1]
}

func newReq(from int64, owner bool, args []string, flags map[string]string, bools map[string]bool, sink *textSink) *router.Request {
	if flags == nil {
		flags = map[string]string{}
	}
	if bools == nil {
		bools = map[string]bool{}
	}
	return &router.Request{
		Chat:      kit.ChatTarget{ChatID: from},
		FromID:    from,
		Args:      args,
		Flags:     flags,
		BoolFlags: bools,
		Owner:     owner,
		Sender:    sink,
	}
}

func handler(t *testing.T, cmds []router.Command, name string) router.HandlerFunc {
	t.Helper()
	for _, c := range cmds {
		if c.Name == name {
			return c.Handle
		}
	}
	t.Fatalf("command %q not registered", name)
	return nil
}

func TestRequestFromCommand(t *testing.T) {
	req := newReq(42, false,
		[]string{"promo_bot", "photo", "AgACAgIAAxkBAAI", "Привет", "Hello"},
		map[string]string{"to": "77"}, nil, nil)
	br, err := requestFromCommand(req)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if br.TenantID != "promo_bot" || br.InitiatorID != 42 || br.Source != "command" {
		t.Fatalf("request=%+v", br)
	}
	if br.Content.Kind != broadcast.KindPhoto || br.Content.Media != "AgACAgIAAxkBAAI" || br.Content.Link != "" {
		t.Fatalf("content=%+v", br.Content)
	}
	if br.Content.Caption.Primary != "Привет" || br.Content.Caption.Fallback != "Hello" {
		t.Fatalf("caption=%+v", br.Content.Caption)
	}
	if !br.TestMode || br.TestRecipientID != 77 {
		t.Fatalf("--to must imply test mode: %+v", br)
	}

	post, err := requestFromCommand(newReq(42, false,
		[]string{"promo_bot", "post", "https://example.com/sale", "Sale"},
		map[string]string{"label": "Shop"}, map[string]bool{"test": true}, nil))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if post.Content.Link != "https://example.com/sale" || post.Content.Media != "" || post.Content.LinkLabel != "Shop" || !post.TestMode {
		t.Fatalf("post=%+v", post)
	}

	photo, err := requestFromCommand(newReq(42, false, []string{"promo_bot", "photo", "-", "x"}, nil, nil, nil))
	if err != nil || photo.Content.Media != "" {
		t.Fatalf("dash must mean no media: %+v err=%v", photo.Content, err)
	}

	if _, err := requestFromCommand(newReq(42, false, []string{"promo_bot", "photo"}, nil, nil, nil)); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if _, err := requestFromCommand(newReq(42, false, []string{"promo_bot", "gif", "x", "y"}, nil, nil, nil)); !errors.Is(err, broadcast.ErrInvalidRequest) {
		t.Fatalf("expected invalid kind, got %v", err)
	}
	if _, err := requestFromCommand(newReq(42, false, []string{"promo_bot", "post", "-", "y"}, map[string]string{"to": "abc"}, nil, nil)); !errors.Is(err, broadcast.ErrInvalidRequest) {
		t.Fatalf("expected bad --to, got %v", err)
	}
}

func TestBroadcastCommandReplies(t *testing.T) {
	bc := &fakeBroadcaster{}
	sink := &textSink{}
	h := handler(t, commands(bc, nil), "broadcast")

	err := h(context.Background(), newReq(42, false, []string{"promo_bot", "video", "https://cdn.example.com/v.mp4", "Watch"}, nil, map[string]bool{"test": true}, sink))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := sink.last(); !strings.Contains(got, "Queued video broadcast bc-1234 for promo_bot (test run)") {
		t.Fatalf("reply=%q", got)
	}
	if len(bc.got) != 1 {
		t.Fatalf("submitted=%d", len(bc.got))
	}

	if err := h(context.Background(), newReq(42, false, nil, nil, nil, sink)); err != nil {
		t.Fatalf("usage errors are not handler failures: %v", err)
	}
	if got := sink.last(); !strings.HasPrefix(got, "Usage: /broadcast") {
		t.Fatalf("reply=%q", got)
	}

	bc.err = broadcast.ErrTenantBusy
	err = h(context.Background(), newReq(42, false, []string{"promo_bot", "video", "v", "x"}, nil, nil, sink))
	if !errors.Is(err, broadcast.ErrTenantBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	if got := sink.last(); !strings.Contains(got, "already queued or running") {
		t.Fatalf("reply=%q", got)
	}
}

func TestStatusShowsOwnJobsOnly(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bc := &fakeBroadcaster{jobs: []broadcast.JobStatus{
		{ID: "bc-a", TenantID: "t1", InitiatorID: 42, Kind: broadcast.KindPost, Running: true, Total: 3, Sent: 1, CreatedAt: now},
		{ID: "bc-b", TenantID: "t2", InitiatorID: 7, Kind: broadcast.KindPhoto, DoneAt: now, Total: 2, Sent: 2, CreatedAt: now,
			Summary: &broadcast.RunSummary{Interrupted: true}},
	}}

	own, err := cmdStatus(bc, newReq(42, false, nil, nil, nil, nil))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(own, "bc-a running t1 post: 1/3 sent") || strings.Contains(own, "bc-b") {
		t.Fatalf("own=%q", own)
	}

	all, _ := cmdStatus(bc, newReq(1, true, nil, nil, nil, nil))
	if !strings.Contains(all, "bc-b interrupted") {
		t.Fatalf("owner view=%q", all)
	}

	hidden, _ := cmdStatus(bc, newReq(42, false, []string{"bc-b"}, nil, nil, nil))
	if !strings.Contains(hidden, `No broadcast job "bc-b"`) {
		t.Fatalf("foreign job leaked: %q", hidden)
	}
	detail, _ := cmdStatus(bc, newReq(42, false, []string{"bc-a"}, nil, nil, nil))
	if !strings.Contains(detail, "Job bc-a (running)") || !strings.Contains(detail, "Progress: 1 sent, 0 failed of 3") {
		t.Fatalf("detail=%q", detail)
	}

	none, _ := cmdStatus(bc, newReq(99, false, nil, nil, nil, nil))
	if none != "No recent broadcast jobs." {
		t.Fatalf("none=%q", none)
	}
}

func TestFormatJobMediaNotes(t *testing.T) {
	st := broadcast.JobStatus{ID: "bc-1", TenantID: "promo_bot", Kind: broadcast.KindPhoto, CreatedAt: time.Now()}

	st.Summary = &broadcast.RunSummary{MediaDegraded: true}
	if got := formatJob(st); !strings.Contains(got, "Placeholder image used") {
		t.Fatalf("degraded job = %q", got)
	}
	st.Summary = &broadcast.RunSummary{MediaDegraded: true, MediaUnverified: true}
	if got := formatJob(st); strings.Contains(got, "Placeholder") || !strings.Contains(got, "not verified") {
		t.Fatalf("unverified job = %q", got)
	}
}

func TestSchedulesCommand(t *testing.T) {
	text, _ := cmdSchedules(nil)
	if text != "Scheduling is not configured." {
		t.Fatalf("nil=%q", text)
	}
	text, _ = cmdSchedules(fakeSchedules{})
	if text != "No scheduled broadcasts." {
		t.Fatalf("empty=%q", text)
	}
	next := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	text, _ = cmdSchedules(fakeSchedules{{Name: "morning", Spec: "0 9 * * *", Tenant: "promo_bot", Next: next}})
	if text != "morning [0 9 * * *] promo_bot next 2026-05-01 09:00:00" {
		t.Fatalf("list=%q", text)
	}

	for _, c := range commands(&fakeBroadcaster{}, fakeSchedules{}) {
		if c.Name == "schedules" && c.Access != router.AccessOwnerOnly {
			t.Fatalf("/schedules must be owner-only")
		}
	}
}

func TestUserError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{broadcast.ErrInvalidTenant, "Tenant name is required."},
		{broadcast.ErrQueueFull, "queue is full"},
		{broadcast.ErrServiceStopped, "not available"},
		{errors.New("boom"), "Command failed: boom"},
	}
	for _, c := range cases {
		if got := userError(c.err, "/x"); !strings.Contains(got, c.want) {
			t.Fatalf("userError(%v)=%q want %q", c.err, got, c.want)
		}
	}
}
