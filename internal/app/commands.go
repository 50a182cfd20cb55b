package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"castbot/internal/broadcast"
	"castbot/internal/schedule"
	"castbot/internal/transport/telegram/router"
)

// Broadcaster is the slice of the broadcast engine the commands use.
type Broadcaster interface {
	Submit(req broadcast.Request) (string, error)
	Status(id string) (broadcast.JobStatus, bool)
	Jobs() []broadcast.JobStatus
}

type ScheduleLister interface {
	Entries() []schedule.Entry
}

const broadcastUsage = `/broadcast <tenant> <photo|video|post> <media|link|-> "<caption>" ["<fallback caption>"] [--test] [--to=<user id>] [--label=<button text>]`

var errUsage = errors.New("usage")

func commands(bc Broadcaster, sched ScheduleLister) []router.Command {
	return []router.Command{
		{
			Name:        "broadcast",
			Aliases:     []string{"bc"},
			Description: "queue a broadcast to a tenant's recipients",
			Usage:       broadcastUsage,
			BoolFlags:   []string{"test"},
			Timeout:     15 * time.Second,
			Handle:      replying(broadcastUsage, func(_ context.Context, req *router.Request) (string, error) { return cmdBroadcast(bc, req) }),
		},
		{
			Name:        "bcstatus",
			Description: "show broadcast jobs",
			Usage:       "/bcstatus [job id]",
			Handle:      replying("/bcstatus [job id]", func(_ context.Context, req *router.Request) (string, error) { return cmdStatus(bc, req) }),
		},
		{
			Name:        "schedules",
			Description: "list scheduled broadcasts",
			Usage:       "/schedules",
			Access:      router.AccessOwnerOnly,
			Handle:      replying("/schedules", func(context.Context, *router.Request) (string, error) { return cmdSchedules(sched) }),
		},
	}
}

// replying adapts a text-producing handler: the result or a user-facing
// error message goes back to the chat, the error to the request log.
func replying(usage string, fn func(ctx context.Context, req *router.Request) (string, error)) router.HandlerFunc {
	return func(ctx context.Context, req *router.Request) error {
		text, err := fn(ctx, req)
		if err != nil {
			text = userError(err, usage)
		}
		if rerr := req.Reply(ctx, text); rerr != nil {
			return errors.Join(err, rerr)
		}
		if errors.Is(err, errUsage) {
			return nil
		}
		return err
	}
}

func userError(err error, usage string) string {
	switch {
	case errors.Is(err, errUsage):
		return "Usage: " + usage
	case errors.Is(err, broadcast.ErrInvalidTenant):
		return "Tenant name is required.\nUsage: " + usage
	case errors.Is(err, broadcast.ErrInvalidRequest):
		return strings.TrimPrefix(err.Error(), broadcast.ErrInvalidRequest.Error()+": ") + "\nUsage: " + usage
	case errors.Is(err, broadcast.ErrTenantBusy):
		return "A broadcast for this tenant is already queued or running. Check /bcstatus."
	case errors.Is(err, broadcast.ErrQueueFull):
		return "The broadcast queue is full, try again later."
	case errors.Is(err, broadcast.ErrServiceStopped):
		return "Broadcasting is not available right now."
	}
	return "Command failed: " + err.Error()
}

// requestFromCommand builds a broadcast request from /broadcast arguments.
// A media or link argument of "-" means none.
func requestFromCommand(req *router.Request) (broadcast.Request, error) {
	if len(req.Args) < 4 || len(req.Args) > 5 {
		return broadcast.Request{}, errUsage
	}
	kind, err := broadcast.ParseKind(req.Args[1])
	if err != nil {
		return broadcast.Request{}, err
	}
	ref := strings.TrimSpace(req.Args[2])
	if ref == "-" {
		ref = ""
	}
	content := broadcast.Content{
		Kind:      kind,
		LinkLabel: req.Flags["label"],
		Caption:   broadcast.Caption{Primary: req.Args[3]},
	}
	if len(req.Args) == 5 {
		content.Caption.Fallback = req.Args[4]
	}
	if kind == broadcast.KindPost {
		content.Link = ref
	} else {
		content.Media = ref
	}

	out := broadcast.Request{
		TenantID:    strings.TrimSpace(req.Args[0]),
		InitiatorID: req.FromID,
		Content:     content,
		TestMode:    req.BoolFlags["test"],
		Source:      "command",
	}
	if raw, ok := req.Flags["to"]; ok {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id == 0 {
			return broadcast.Request{}, fmt.Errorf("%w: --to must be a numeric user id", broadcast.ErrInvalidRequest)
		}
		out.TestMode = true
		out.TestRecipientID = id
	}
	return out, nil
}

func cmdBroadcast(bc Broadcaster, req *router.Request) (string, error) {
	br, err := requestFromCommand(req)
	if err != nil {
		return "", err
	}
	id, err := bc.Submit(br)
	if err != nil {
		return "", err
	}
	mode := ""
	if br.TestMode {
		mode = " (test run)"
	}
	return fmt.Sprintf("Queued %s broadcast %s for %s%s. You will get a summary when it finishes.", br.Content.Kind, id, br.TenantID, mode), nil
}

// cmdStatus shows owners every job and everyone else only their own.
func cmdStatus(bc Broadcaster, req *router.Request) (string, error) {
	visible := func(st broadcast.JobStatus) bool { return req.Owner || st.InitiatorID == req.FromID }

	if len(req.Args) > 0 {
		st, ok := bc.Status(req.Args[0])
		if !ok || !visible(st) {
			return fmt.Sprintf("No broadcast job %q.", req.Args[0]), nil
		}
		return formatJob(st), nil
	}

	var lines []string
	for _, st := range bc.Jobs() {
		if !visible(st) {
			continue
		}
		lines = append(lines, formatJobLine(st))
		if len(lines) == 10 {
			break
		}
	}
	if len(lines) == 0 {
		return "No recent broadcast jobs.", nil
	}
	return strings.Join(lines, "\n"), nil
}

func jobState(st broadcast.JobStatus) string {
	switch {
	case st.Running:
		return "running"
	case st.Err != "":
		return "failed"
	case !st.DoneAt.IsZero():
		if st.Summary != nil && st.Summary.Interrupted {
			return "interrupted"
		}
		return "done"
	}
	return "queued"
}

func formatJobLine(st broadcast.JobStatus) string {
	return fmt.Sprintf("%s %s %s %s: %d/%d sent, %d failed", st.ID, jobState(st), st.TenantID, st.Kind, st.Sent, st.Total, st.Failed)
}

func formatJob(st broadcast.JobStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job %s (%s)\nTenant: %s\nKind: %s\nSource: %s\n", st.ID, jobState(st), st.TenantID, st.Kind, st.Source)
	if st.TestMode {
		b.WriteString("Test run\n")
	}
	fmt.Fprintf(&b, "Progress: %d sent, %d failed of %d\n", st.Sent, st.Failed, st.Total)
	fmt.Fprintf(&b, "Queued: %s", st.CreatedAt.Format(time.DateTime))
	if !st.DoneAt.IsZero() && !st.StartedAt.IsZero() {
		fmt.Fprintf(&b, "\nTook: %s", st.DoneAt.Sub(st.StartedAt).Round(time.Millisecond))
	}
	if s := st.Summary; s != nil {
		if s.Removed > 0 || s.MarkedUnreachable > 0 {
			fmt.Fprintf(&b, "\nRemoved: %d, marked unreachable: %d", s.Removed, s.MarkedUnreachable)
		}
		switch {
		case s.MediaUnverified:
			b.WriteString("\nPhoto not verified; original reference sent")
		case s.MediaDegraded:
			b.WriteString("\nPlaceholder image used")
		}
	}
	if st.Err != "" {
		b.WriteString("\nError: " + st.Err)
	}
	return b.String()
}

func cmdSchedules(sched ScheduleLister) (string, error) {
	if sched == nil {
		return "Scheduling is not configured.", nil
	}
	entries := sched.Entries()
	if len(entries) == 0 {
		return "No scheduled broadcasts.", nil
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s [%s] %s", e.Name, e.Spec, e.Tenant)
		if !e.Next.IsZero() {
			line += " next " + e.Next.Format(time.DateTime)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
