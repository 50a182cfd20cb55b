package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"castbot/internal/broadcast"
	"castbot/internal/config"
	"castbot/pkg/logx"

	"github.com/robfig/cron/v3"
)

// Submitter queues a broadcast; *broadcast.Service implements it.
type Submitter interface {
	Submit(req broadcast.Request) (string, error)
}

// Entry is a registered schedule as reported by Entries.
type Entry struct {
	Name   string
	Spec   string
	Tenant string
	Next   time.Time
	Prev   time.Time
}

type registered struct {
	def config.ScheduleConfig
	req broadcast.Request
	id  cron.EntryID
}

type Service struct {
	mu     sync.Mutex
	log    logx.Logger
	sub    Submitter
	parser cron.Parser
	loc    *time.Location

	c    *cron.Cron
	defs map[string]*registered
}

// specParser accepts 5-field and 6-field (with seconds) specs plus
// descriptors like "@daily" and "@every 1h".
var specParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func New(sub Submitter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:    log,
		sub:    sub,
		parser: specParser,
		loc:    time.Local,
		defs:   map[string]*registered{},
	}
}

// ParseSpec validates a cron spec with the parser the service uses.
func ParseSpec(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("schedule spec required")
	}
	return specParser.Parse(spec)
}

// RequestFor builds the broadcast request a schedule submits.
func RequestFor(def config.ScheduleConfig) (broadcast.Request, error) {
	kind, err := broadcast.ParseKind(def.Kind)
	if err != nil {
		return broadcast.Request{}, err
	}
	req := broadcast.Request{
		TenantID:    strings.TrimSpace(def.Tenant),
		InitiatorID: def.InitiatorID,
		TestMode:    def.Test,
		Source:      "schedule:" + def.Name,
		Content: broadcast.Content{
			Kind:      kind,
			Media:     strings.TrimSpace(def.Media),
			Link:      strings.TrimSpace(def.Link),
			LinkLabel: def.LinkLabel,
			Caption:   broadcast.Caption{Primary: def.Caption, Fallback: def.CaptionFallback},
		},
	}
	if req.TenantID == "" {
		return broadcast.Request{}, broadcast.ErrInvalidTenant
	}
	if err := req.Content.Validate(); err != nil {
		return broadcast.Request{}, err
	}
	return req, nil
}

// Validate checks every enabled schedule without registering anything.
func Validate(defs []config.ScheduleConfig) error {
	var errs []error
	for _, d := range defs {
		if d.Disabled {
			continue
		}
		if _, err := ParseSpec(d.Spec); err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", d.Name, err))
			continue
		}
		if _, err := RequestFor(d); err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", d.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Apply replaces the registered schedules with defs. Invalid definitions
// are skipped and reported together; valid ones are registered anyway.
func (s *Service) Apply(defs []config.ScheduleConfig) error {
	next := map[string]*registered{}
	var errs []error
	for _, d := range defs {
		if d.Disabled {
			continue
		}
		if _, err := s.parser.Parse(strings.TrimSpace(d.Spec)); err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", d.Name, err))
			continue
		}
		req, err := RequestFor(d)
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", d.Name, err))
			continue
		}
		next[d.Name] = &registered{def: d, req: req}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		for _, r := range s.defs {
			s.c.Remove(r.id)
		}
	}
	s.defs = next
	if s.c != nil {
		for _, r := range s.defs {
			s.addLocked(r)
		}
	}
	s.log.Info("schedules applied", logx.Int("active", len(next)), logx.Int("invalid", len(errs)))
	return errors.Join(errs...)
}

func (s *Service) Start(ctx context.Context) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.c = cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLogger{log: s.log}),
		cron.WithChain(cron.Recover(cronLogger{log: s.log})),
	)
	for _, r := range s.defs {
		s.addLocked(r)
	}
	s.c.Start()
	s.log.Info("service started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) addLocked(r *registered) {
	id, err := s.c.AddFunc(strings.TrimSpace(r.def.Spec), s.fireFunc(r.def.Name, r.req))
	if err != nil {
		s.log.Error("schedule register failed", logx.String("name", r.def.Name), logx.String("spec", r.def.Spec), logx.Err(err))
		return
	}
	r.id = id
	s.log.Debug("schedule registered", logx.String("name", r.def.Name), logx.String("spec", r.def.Spec), logx.Time("next", s.c.Entry(id).Next))
}

func (s *Service) fireFunc(name string, req broadcast.Request) func() {
	return func() {
		id, err := s.sub.Submit(req)
		switch {
		case err == nil:
			s.log.Info("scheduled broadcast queued", logx.String("name", name), logx.String("job", id), logx.String("tenant", req.TenantID))
		case errors.Is(err, broadcast.ErrTenantBusy):
			s.log.Warn("scheduled broadcast skipped; tenant busy", logx.String("name", name), logx.String("tenant", req.TenantID))
		default:
			s.log.Error("scheduled broadcast not queued", logx.String("name", name), logx.String("tenant", req.TenantID), logx.Err(err))
		}
	}
}

// Entries lists the registered schedules sorted by name. Next and Prev are
// zero until Start.
func (s *Service) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.defs))
	for _, r := range s.defs {
		e := Entry{Name: r.def.Name, Spec: r.def.Spec, Tenant: r.req.TenantID}
		if s.c != nil && r.id != 0 {
			ce := s.c.Entry(r.id)
			e.Next, e.Prev = ce.Next, ce.Prev
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
