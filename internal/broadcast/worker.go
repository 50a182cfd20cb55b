package broadcast

import (
	"context"
	"fmt"
	"runtime/debug"

	"castbot/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan job) {
	for {
		// fast-exit so stop wins over queued work
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case j := <-queue:
			s.execJob(ctx, j)
		}
	}
}

func (s *Service) execJob(ctx context.Context, j job) {
	var (
		sum RunSummary
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in broadcast job", logx.String("job", j.id), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
		s.locks.unlock(j.req.TenantID)
		if err != nil {
			s.finish(j.id, nil, err)
			return
		}
		s.finish(j.id, &sum, nil)
	}()

	s.setRunning(j.id)
	sum, err = s.run(ctx, j.id, j.req)
	if err != nil {
		s.log.Warn("broadcast job failed", logx.String("job", j.id), logx.String("tenant", j.req.TenantID), logx.Err(err))
	}
}
