// Package router turns chat updates into command invocations: parsing,
// owner checks, middleware and a bounded worker pool.
package router

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"runtime"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	rtsup "castbot/internal/runtime/supervisor"
	kit "castbot/internal/transport"
	"castbot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	// BoolFlags lists --flags that never take a value.
	BoolFlags []string

	Timeout time.Duration // optional per-command override
	Handle  HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string
	Args    []string

	// Parsed arguments
	RawArgs   []string
	Flags     map[string]string
	BoolFlags map[string]bool
	ReqID     string
	Owner     bool

	Sender kit.Sender
	Logger logx.Logger
}

// Reply sends text to the chat the request came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	if r.Sender == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := r.Sender.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

type CommandManager struct {
	mu    sync.RWMutex
	cmds  map[string]*Command
	alias map[string]*Command
	order []string

	owners []int64

	log    logx.Logger
	sender kit.Sender

	jobs chan func()
}

func NewCommandManager(log logx.Logger, sender kit.Sender, owners []int64) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CommandManager{
		cmds:   map[string]*Command{},
		alias:  map[string]*Command{},
		log:    log,
		sender: sender,
		owners: append([]int64(nil), owners...),
		jobs:   make(chan func(), 256),
	}
}

// tryEnqueue is a panic-safe enqueue helper (handles the jobs channel being closed).
func (m *CommandManager) tryEnqueue(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// SetOwners updates the owner list used for AccessOwnerOnly checks.
// Safe to call during hot-reload.
func (m *CommandManager) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	m.mu.Lock()
	m.owners = cp
	m.mu.Unlock()
}

func (m *CommandManager) IsOwner(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.owners, id)
}

// SetRegistry replaces the command set. /help is always added.
func (m *CommandManager) SetRegistry(cmds []Command) {
	cmds = append(cmds, Command{
		Name:        "help",
		Aliases:     []string{"h", "start"},
		Description: "list commands",
		Usage:       "/help [cmd]",
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, m.helpText(req.Args, req.Owner))
		},
	})

	byName := map[string]*Command{}
	alias := map[string]*Command{}
	order := make([]string, 0, len(cmds))
	for _, c := range cmds {
		name := sanitizeTelegramCommand(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		cc := c
		cc.Name = name
		if _, dup := byName[name]; !dup {
			order = append(order, name)
		}
		byName[name] = &cc
		for _, a := range c.Aliases {
			if sa := sanitizeTelegramCommand(a); sa != "" && sa != name {
				alias[sa] = &cc
			}
		}
	}

	m.mu.Lock()
	m.cmds = byName
	m.alias = alias
	m.order = order
	m.mu.Unlock()
}

// lookup resolves a command word; canonical names win over aliases.
func (m *CommandManager) lookup(word string) (*Command, bool) {
	word = strings.ToLower(word)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.cmds[word]; ok {
		return c, true
	}
	c, ok := m.alias[word]
	return c, ok
}

func (m *CommandManager) registered() []Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Command, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, *m.cmds[name])
	}
	return out
}

func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > 8 {
		workers = 8
	}

	sup := rtsup.New(ctx,
		rtsup.WithLogger(m.log.With(logx.String("comp", "telegram.router"))),
		rtsup.WithCancelOnError(false),
	)
	m.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(m.jobs)))

	for i := 0; i < workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-m.jobs:
					if !ok {
						return nil
					}
					if job == nil {
						continue
					}
					func() {
						defer func() {
							if r := recover(); r != nil {
								m.log.Error("panic in command job", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithPublishFirstError(true),
			rtsup.WithStopOnCleanExit(true),
		)
	}

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.routeMessage(ctx, up)
		}
	}
}

func (m *CommandManager) routeMessage(root context.Context, up kit.Update) {
	req, cmd, ok := m.prepare(up)
	if !ok {
		return
	}
	if cmd == nil {
		_ = req.Reply(root, "Unknown command. Try /help")
		return
	}
	if cmd.Access == AccessOwnerOnly && !req.Owner {
		req.Logger.Warn("owner-only command denied")
		_ = req.Reply(root, "This command is for bot owners only.")
		return
	}

	final := Chain(
		cmd.Handle,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(cmd.Timeout),
	)
	if !m.tryEnqueue(func() { _ = final(root, req) }) {
		_ = req.Reply(root, "Busy, try again.")
	}
}

// prepare parses a message update. ok is false for non-command text; a nil
// command with ok set means the word did not match anything.
func (m *CommandManager) prepare(up kit.Update) (*Request, *Command, bool) {
	msg := up.Message
	if msg == nil {
		return nil, nil, false
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return nil, nil, false
	}
	parts := tokenizeCommandLine(text)
	if len(parts) == 0 {
		return nil, nil, false
	}
	word := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	raw := parts[1:]

	req := &Request{
		Update:  up,
		Chat:    kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID},
		FromID:  msg.FromID,
		Command: word,
		RawArgs: raw,
		ReqID:   newReqID(),
		Owner:   m.IsOwner(msg.FromID),
		Sender:  m.sender,
	}
	req.Logger = m.log.With(
		logx.String("rid", req.ReqID),
		logx.Int64("chat_id", msg.ChatID),
		logx.Int64("from_id", msg.FromID),
		logx.String("cmd", word),
	)

	cmd, found := m.lookup(word)
	if !found {
		return req, nil, true
	}
	req.Command = cmd.Name
	bools := make(map[string]bool, len(cmd.BoolFlags))
	for _, b := range cmd.BoolFlags {
		bools[b] = true
	}
	req.Args, req.Flags, req.BoolFlags = parseFlags(raw, bools)
	return req, cmd, true
}

func newReqID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}
