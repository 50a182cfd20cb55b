package broadcast

import (
	"sort"
	"strings"
	"time"

	"castbot/pkg/logx"

	"github.com/google/uuid"
)

// Submit validates req, claims its tenant and queues it for a worker. The
// claim is held until the job finishes or is dropped at Stop.
func (s *Service) Submit(req Request) (string, error) {
	if err := checkRequest(req); err != nil {
		return "", err
	}

	now := time.Now()
	s.pruneStatus(now)

	// s.mu spans the running check and the enqueue; Stop drains under it.
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue
	if s.stopCh == nil || s.stopDone != nil || q == nil {
		return "", ErrServiceStopped
	}
	if !s.locks.tryLock(req.TenantID) {
		return "", ErrTenantBusy
	}
	id := s.newJobID(req, now)

	select {
	case q <- job{id: id, req: req}:
		s.log.Debug("broadcast job enqueued", logx.String("job", id), logx.String("tenant", req.TenantID), logx.Int("queue_len", len(q)), logx.Int("queue_cap", cap(q)))
		return id, nil
	default:
		s.locks.unlock(req.TenantID)
		s.statusMu.Lock()
		delete(s.status, id)
		s.statusMu.Unlock()
		s.log.Warn("broadcast queue full; rejecting job", logx.String("tenant", req.TenantID), logx.Int("queue_cap", cap(q)))
		return "", ErrQueueFull
	}
}

// newJobID registers a fresh status entry and returns its id.
func (s *Service) newJobID(req Request, now time.Time) string {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	for {
		id := "bc-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
		if _, taken := s.status[id]; taken {
			continue
		}
		s.status[id] = &JobStatus{
			ID:          id,
			TenantID:    req.TenantID,
			InitiatorID: req.InitiatorID,
			Kind:        req.Content.Kind,
			Source:      req.Source,
			TestMode:    req.TestMode,
			CreatedAt:   now,
		}
		return id
	}
}

func (s *Service) Status(jobID string) (JobStatus, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	st, ok := s.status[jobID]
	if !ok || st == nil {
		return JobStatus{}, false
	}
	return copyStatus(st), true
}

// Jobs returns the retained job statuses, newest first.
func (s *Service) Jobs() []JobStatus {
	s.statusMu.RLock()
	out := make([]JobStatus, 0, len(s.status))
	for _, st := range s.status {
		if st != nil {
			out = append(out, copyStatus(st))
		}
	}
	s.statusMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func copyStatus(st *JobStatus) JobStatus {
	cp := *st
	if st.Summary != nil {
		sum := *st.Summary
		cp.Summary = &sum
	}
	return cp
}

func (s *Service) setRunning(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.StartedAt = time.Now()
		st.Running = true
	}
}

func (s *Service) setTotal(id string, total int) {
	if id == "" {
		return
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.Total = total
	}
}

func (s *Service) progress(id string, k OutcomeKind) {
	if id == "" {
		return
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		if k == Sent {
			st.Sent++
		} else {
			st.Failed++
		}
	}
}

func (s *Service) finish(id string, sum *RunSummary, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.DoneAt = time.Now()
		st.Running = false
		st.Summary = sum
		if err != nil {
			st.Err = err.Error()
		}
	}
}
