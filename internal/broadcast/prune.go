package broadcast

import (
	"sort"
	"time"
)

// pruneStatus keeps the status map bounded: finished jobs expire after the
// TTL and the oldest non-running entries go first when over the limit.
func (s *Service) pruneStatus(now time.Time) {
	s.mu.Lock()
	max, ttl := s.cfg.StatusMax, s.cfg.StatusTTL
	s.mu.Unlock()
	if max <= 0 {
		max = defaultStatusMax
	}
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}

	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	for id, st := range s.status {
		if st == nil {
			delete(s.status, id)
			continue
		}
		if st.Running {
			continue
		}
		ref := st.DoneAt
		if ref.IsZero() {
			ref = st.CreatedAt
		}
		if !ref.IsZero() && now.Sub(ref) > ttl {
			delete(s.status, id)
		}
	}

	// one slot stays free for the job about to be registered
	excess := len(s.status) - max + 1
	if excess <= 0 {
		return
	}

	type kv struct {
		id string
		t  time.Time
	}
	items := make([]kv, 0, len(s.status))
	for id, st := range s.status {
		if st.Running || st.DoneAt.IsZero() {
			continue
		}
		items = append(items, kv{id: id, t: st.DoneAt})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].t.Before(items[j].t) })

	for i := 0; i < excess && i < len(items); i++ {
		delete(s.status, items[i].id)
	}
}
