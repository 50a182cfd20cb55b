package broadcast

import "sync"

// tenantLocks allows at most one queued or running broadcast per tenant.
type tenantLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (l *tenantLocks) tryLock(tenantID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[tenantID]; busy {
		return false
	}
	l.held[tenantID] = struct{}{}
	return true
}

func (l *tenantLocks) unlock(tenantID string) {
	l.mu.Lock()
	delete(l.held, tenantID)
	l.mu.Unlock()
}
