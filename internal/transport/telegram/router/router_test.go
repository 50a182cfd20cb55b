package router

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	kit "castbot/internal/transport"
	"castbot/pkg/logx"
)

type recordSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordSender) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	return kit.MessageRef{}, nil
}

func (s *recordSender) SendPhoto(context.Context, kit.ChatTarget, kit.Media, string, *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{}, nil
}

func (s *recordSender) SendVideo(context.Context, kit.ChatTarget, kit.Media, string, *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{}, nil
}

func (s *recordSender) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func msg(from int64, text string) kit.Update {
	return kit.Update{Message: &kit.Message{ChatID: from, FromID: from, Text: text, IsPrivate: true}}
}

func newManager(s *recordSender) *CommandManager {
	m := NewCommandManager(logx.Nop(), s, []int64{1})
	m.SetRegistry([]Command{
		{Name: "echo", Aliases: []string{"e"}, Description: "echo args", Usage: "/echo <text>", BoolFlags: []string{"loud"}, Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, strings.Join(req.Args, " "))
		}},
		{Name: "secret", Description: "owners only", Access: AccessOwnerOnly, Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, "ok")
		}},
	})
	return m
}

func TestPrepareParsesCommand(t *testing.T) {
	m := newManager(&recordSender{})
	req, cmd, ok := m.prepare(msg(5, `/echo@castbot "hello world" --loud next --to=7`))
	if !ok || cmd == nil {
		t.Fatalf("expected command, ok=%v cmd=%v", ok, cmd)
	}
	if cmd.Name != "echo" || req.Command != "echo" {
		t.Fatalf("command=%q", req.Command)
	}
	if len(req.Args) != 2 || req.Args[0] != "hello world" || req.Args[1] != "next" {
		t.Fatalf("args=%q", req.Args)
	}
	if !req.BoolFlags["loud"] || req.Flags["to"] != "7" {
		t.Fatalf("flags=%v bools=%v", req.Flags, req.BoolFlags)
	}
	if req.Owner {
		t.Fatalf("user 5 is not an owner")
	}

	if _, _, ok := m.prepare(msg(5, "just chatting")); ok {
		t.Fatalf("plain text must not route")
	}
	if _, c, _ := m.prepare(msg(5, "/E hi")); c == nil || c.Name != "echo" {
		t.Fatalf("alias lookup failed: %v", c)
	}
}

func TestOwnerOnlyAndUnknownReplies(t *testing.T) {
	s := &recordSender{}
	m := newManager(s)
	m.routeMessage(context.Background(), msg(5, "/secret"))
	m.routeMessage(context.Background(), msg(5, "/nope"))
	got := s.all()
	if len(got) != 2 || !strings.Contains(got[0], "owners only") || !strings.Contains(got[1], "Unknown command") {
		t.Fatalf("replies=%q", got)
	}
}

func TestDispatchLoopRunsHandlers(t *testing.T) {
	s := &recordSender{}
	m := newManager(s)
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan kit.Update, 4)
	done := make(chan struct{})
	go func() {
		_ = m.DispatchLoop(ctx, updates)
		close(done)
	}()

	updates <- msg(1, "/secret")
	updates <- msg(5, "/echo hi there")

	deadline := time.After(2 * time.Second)
	for len(s.all()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("handlers did not run: %q", s.all())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	got := strings.Join(s.all(), "|")
	if !strings.Contains(got, "ok") || !strings.Contains(got, "hi there") {
		t.Fatalf("replies=%q", got)
	}
}

func TestHelpHidesOwnerCommands(t *testing.T) {
	m := newManager(&recordSender{})
	pub := m.helpText(nil, false)
	if strings.Contains(pub, "/secret") || !strings.Contains(pub, "/echo") {
		t.Fatalf("public help:\n%s", pub)
	}
	if own := m.helpText(nil, true); !strings.Contains(own, "/secret - owners only (owner)") {
		t.Fatalf("owner help:\n%s", own)
	}
	if d := m.helpText([]string{"/e"}, false); !strings.Contains(d, "/echo <text>") {
		t.Fatalf("detail help:\n%s", d)
	}
	if d := m.helpText([]string{"secret"}, false); !strings.Contains(d, "Unknown command") {
		t.Fatalf("owner command leaked:\n%s", d)
	}
}

func TestMenuCommands(t *testing.T) {
	menu := newManager(&recordSender{}).MenuCommands()
	var names []string
	for _, c := range menu {
		names = append(names, c.Command)
	}
	if strings.Join(names, ",") != "echo,help" {
		t.Fatalf("menu=%v", names)
	}
}

func TestSanitizeTelegramCommand(t *testing.T) {
	cases := map[string]string{
		"BcStatus":   "bcstatus",
		"job-status": "job_status",
		"  a  b ":    "a_b",
		"9lives":     "cmd_9lives",
		"!!!":        "",
		"x__y":       "x_y",
	}
	cases[strings.Repeat("a", 40)] = strings.Repeat("a", 32)
	for in, want := range cases {
		if got := sanitizeTelegramCommand(in); got != want {
			t.Fatalf("sanitize(%q)=%q want %q", in, got, want)
		}
	}
}
