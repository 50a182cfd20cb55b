package broadcast

import (
	"context"
	"strings"
	"time"

	"castbot/internal/storage"
	kit "castbot/internal/transport"
	"castbot/pkg/logx"

	"github.com/go-faster/errors"
)

// Dispatch runs one broadcast synchronously and returns its summary.
//
// Only a denied initiator, a failing directory read and an unusable photo
// without placeholder abort the run; per-recipient failures are counted.
// A second Dispatch or Submit for the same tenant fails with ErrTenantBusy
// while this one is active.
func (s *Service) Dispatch(ctx context.Context, req Request) (RunSummary, error) {
	if err := checkRequest(req); err != nil {
		return RunSummary{}, err
	}
	if !s.locks.tryLock(req.TenantID) {
		return RunSummary{}, ErrTenantBusy
	}
	defer s.locks.unlock(req.TenantID)
	return s.run(ctx, "", req)
}

func checkRequest(req Request) error {
	if strings.TrimSpace(req.TenantID) == "" {
		return ErrInvalidTenant
	}
	if req.InitiatorID == 0 {
		return errors.Wrap(ErrInvalidRequest, "initiator id is required")
	}
	return req.Content.Validate()
}

func (s *Service) run(ctx context.Context, jobID string, req Request) (RunSummary, error) {
	cfg, deps := s.snapshot()
	start := time.Now()
	log := s.log.With(
		logx.String("tenant", req.TenantID),
		logx.Int64("initiator", req.InitiatorID),
		logx.String("kind", string(req.Content.Kind)),
	)
	if jobID != "" {
		log = log.With(logx.String("job", jobID))
	}
	ev := RunEvent{JobID: jobID, TenantID: req.TenantID, InitiatorID: req.InitiatorID}

	g := gate{dir: deps.Directory, audit: deps.Audit, owners: cfg.OwnerIDs, log: log}
	ok, err := g.Authorize(ctx, req.TenantID, req.InitiatorID)
	if err != nil {
		log.Error("ownership check failed", logx.Err(err))
		deps.Metrics.run("directory_error")
		ev.Err = err.Error()
		publish(deps.Bus, EventFinished, ev)
		return RunSummary{}, err
	}
	if !ok {
		publish(deps.Bus, EventDenied, ev)
		deps.Metrics.run("denied")
		return RunSummary{}, ErrPermissionDenied
	}

	recipients, err := fetchRecipients(ctx, deps.Directory, req.TenantID, audience{
		testMode:  req.TestMode,
		explicit:  req.TestRecipientID,
		initiator: req.InitiatorID,
	})
	if err != nil {
		log.Error("recipient query failed", logx.Err(err))
		deps.Metrics.run("directory_error")
		ev.Err = err.Error()
		publish(deps.Bus, EventFinished, ev)
		return RunSummary{}, err
	}

	sum := RunSummary{Total: len(recipients), TestMode: req.TestMode}
	s.setTotal(jobID, len(recipients))
	publish(deps.Bus, EventStarted, ev)
	deps.Metrics.runStarted()
	defer deps.Metrics.runDone()
	log.Info("broadcast started", logx.Int("recipients", len(recipients)), logx.Bool("test", req.TestMode), logx.String("source", req.Source))

	primary := cfg.primaryLocales()
	c := req.Content
	if c.Kind == KindPost && strings.TrimSpace(c.LinkLabel) == "" {
		c.LinkLabel = cfg.LinkLabel
	}

	var probe probeResult
	if c.Kind == KindPhoto && len(recipients) > 0 {
		mr := mediaResolver{files: deps.Transport, placeholder: cfg.PlaceholderPhotoURL, log: log}
		caption := c.Caption.For(initiatorLocale(ctx, deps.Directory, req.TenantID, recipients, req.InitiatorID, log), primary)
		probe, err = mr.Probe(ctx, c.Media, func(ctx context.Context, m kit.Media) error {
			sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
			defer cancel()
			_, err := deps.Transport.SendPhoto(sctx, kit.ChatTarget{ChatID: req.InitiatorID}, m, caption, nil)
			return err
		})
		if err != nil {
			deps.Metrics.run("media_unavailable")
			ev.Err = err.Error()
			publish(deps.Bus, EventFinished, ev)
			return RunSummary{}, err
		}
		sum.MediaDegraded = probe.degraded
		sum.MediaUnverified = probe.unverified
	}

	tr := tracker{
		dir:      deps.Directory,
		audit:    deps.Audit,
		phrases:  cfg.UnreachablePhrases,
		readOnly: req.TestMode,
		metrics:  deps.Metrics,
		log:      log,
	}
	hard := cfg.hardCodes()
	sentAny := false

	for _, r := range recipients {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}

		var out Outcome
		if probe.delivered && r.ID == req.InitiatorID {
			// the probe already delivered this recipient's copy
			out = Outcome{Kind: Sent}
		} else {
			if sentAny {
				if err := deps.Sleep(ctx, cfg.PacingInterval); err != nil {
					sum.Interrupted = true
					break
				}
			}
			sentAny = true
			out = classify(deliver(ctx, cfg, deps.Transport, c, probe.media, r, primary), hard)
		}

		if out.Kind == Sent {
			sum.SuccessCount++
		} else {
			sum.FailureCount++
			log.Debug("recipient send failed", logx.Int64("recipient", r.ID), logx.String("outcome", out.Kind.String()), logx.Int("code", out.Code), logx.String("reason", out.Reason))
		}
		deps.Metrics.send(out.Kind)

		// writes outlive a shutdown so the classified outcome is not lost
		switch tr.apply(context.WithoutCancel(ctx), req.TenantID, r.ID, out) {
		case effectRemoved:
			sum.Removed++
			publish(deps.Bus, EventRecipientRemoved, RunEvent{JobID: jobID, TenantID: req.TenantID, InitiatorID: req.InitiatorID, RecipientID: r.ID})
		case effectUnreachable:
			sum.MarkedUnreachable++
		}
		s.progress(jobID, out.Kind)
	}
	sum.Took = time.Since(start)

	s.complete(ctx, deps, log, req, jobID, sum, start)
	return sum, nil
}

func deliver(ctx context.Context, cfg Config, t Transport, c Content, photo kit.Media, r storage.Recipient, primary map[string]bool) error {
	sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()

	to := kit.ChatTarget{ChatID: r.ID}
	caption := c.Caption.For(r.Locale, primary)
	var err error
	switch c.Kind {
	case KindPost:
		_, err = t.SendText(sctx, to, caption, &kit.SendOptions{
			DisablePreview: true,
			Link:           &kit.Link{Label: c.LinkLabel, URL: c.Link},
		})
	case KindVideo:
		_, err = t.SendVideo(sctx, to, videoMedia(c.Media), caption, nil)
	case KindPhoto:
		_, err = t.SendPhoto(sctx, to, photo, caption, nil)
	}
	return err
}

func videoMedia(ref string) kit.Media {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return kit.Media{URL: ref}
	}
	return kit.Media{FileID: ref}
}

