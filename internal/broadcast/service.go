package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"castbot/internal/eventbus"
	rtsup "castbot/internal/runtime/supervisor"
	"castbot/pkg/logx"
)

// Deps are the collaborators of the engine. Directory and Transport are
// required; Audit defaults to Directory when it also implements AuditLog.
type Deps struct {
	Directory Directory
	Audit     AuditLog
	Transport Transport
	Bus       eventbus.Bus
	Metrics   *Metrics

	// Sleep waits between sends. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

type job struct {
	id  string
	req Request
}

type Service struct {
	mu   sync.Mutex
	cfg  Config
	deps Deps
	log  logx.Logger

	locks tenantLocks

	queue chan job
	sup   *rtsup.Supervisor
	// stopCh is non-nil while workers run; stopDone is non-nil while a
	// Stop() is in progress.
	stopCh   chan struct{}
	stopDone chan struct{}

	statusMu sync.RWMutex
	status   map[string]*JobStatus
}

func New(cfg Config, deps Deps, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if deps.Audit == nil {
		if a, ok := deps.Directory.(AuditLog); ok {
			deps.Audit = a
		}
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	return &Service{
		cfg:    cfg.withDefaults(),
		deps:   deps,
		log:    log,
		locks:  tenantLocks{held: map[string]struct{}{}},
		status: map[string]*JobStatus{},
	}
}

// Apply swaps the engine settings. Worker count and queue size take effect
// on the next Start.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	running := s.stopCh != nil
	s.mu.Unlock()

	if running && (prev.Workers != cfg.Workers || prev.QueueSize != cfg.QueueSize) {
		s.log.Info("worker pool settings change on next start",
			logx.Int("workers", cfg.Workers), logx.Int("queue_size", cfg.QueueSize))
	}
}

func (s *Service) snapshot() (Config, Deps) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.deps
}

func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	// If a Stop() is in progress, wait for it to complete.
	for {
		s.mu.Lock()
		if s.stopCh == nil {
			break
		}
		done := s.stopDone
		s.mu.Unlock()
		if done == nil {
			return
		}
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
	defer s.mu.Unlock()

	cfg := s.cfg
	if s.queue == nil || cap(s.queue) != cfg.QueueSize {
		s.queue = make(chan job, cfg.QueueSize)
	}
	s.stopCh = make(chan struct{})
	s.sup = rtsup.New(ctx, rtsup.WithLogger(s.log.With(logx.String("comp", "broadcast"))))

	queue, stopCh, sup := s.queue, s.stopCh, s.sup
	for i := 0; i < cfg.Workers; i++ {
		sup.Go0(fmt.Sprintf("broadcast.worker.%d", i), func(ctx context.Context) {
			s.worker(ctx, stopCh, queue)
		})
	}
	s.log.Info("service started", logx.Int("workers", cfg.Workers), logx.Int("queue_size", cfg.QueueSize))
}

// Stop halts the workers. A run in progress is interrupted between two
// recipients; queued jobs are dropped and their tenants released.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	stopCh, sup, queue := s.stopCh, s.sup, s.queue
	s.mu.Unlock()

	close(stopCh)
	sup.Cancel()

	go func() {
		_ = sup.Wait(context.Background())
		s.mu.Lock()
		dropped := s.drain(queue)
		s.stopCh = nil
		s.stopDone = nil
		s.sup = nil
		s.mu.Unlock()
		close(done)
		s.log.Info("service stopped", logx.Duration("took", time.Since(start)), logx.Int("dropped_jobs", dropped))
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// drain is called with s.mu held.
func (s *Service) drain(queue chan job) int {
	n := 0
	for {
		select {
		case j := <-queue:
			s.locks.unlock(j.req.TenantID)
			s.finish(j.id, nil, ErrServiceStopped)
			n++
		default:
			return n
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
