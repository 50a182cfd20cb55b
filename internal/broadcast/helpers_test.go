package broadcast

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"castbot/internal/storage"
	kit "castbot/internal/transport"
	"castbot/pkg/logx"
)

const (
	fileBase   = "https://api.telegram.org/file/bot"
	liveToken  = "123:abc"
	adminID    = int64(1)
	tenantName = "promo_bot"
)

type sent struct {
	kind  string
	to    int64
	media kit.Media
	text  string
	opt   *kit.SendOptions
}

type fakeTransport struct {
	mu        sync.Mutex
	sent      []sent
	failFor   map[int64]error
	photoErr  func(to int64, m kit.Media) error
	meta      map[string]string
	metaCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failFor: map[int64]error{}, meta: map[string]string{}}
}

func (f *fakeTransport) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	if s.kind == "photo" && f.photoErr != nil {
		if err := f.photoErr(s.to, s.media); err != nil {
			return err
		}
	}
	return f.failFor[s.to]
}

func (f *fakeTransport) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{ChatID: to.ChatID}, f.record(sent{kind: "text", to: to.ChatID, text: text, opt: opt})
}

func (f *fakeTransport) SendPhoto(_ context.Context, to kit.ChatTarget, m kit.Media, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{ChatID: to.ChatID}, f.record(sent{kind: "photo", to: to.ChatID, media: m, text: caption, opt: opt})
}

func (f *fakeTransport) SendVideo(_ context.Context, to kit.ChatTarget, m kit.Media, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{ChatID: to.ChatID}, f.record(sent{kind: "video", to: to.ChatID, media: m, text: caption, opt: opt})
}

func (f *fakeTransport) FileMetadata(_ context.Context, fileID string) (kit.FileMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	p, ok := f.meta[fileID]
	if !ok {
		return kit.FileMeta{}, &kit.Error{Code: 400, Description: "Bad Request: invalid file_id"}
	}
	return kit.FileMeta{FileID: fileID, Path: p}, nil
}

func (f *fakeTransport) FileURL(path string) string { return fileBase + liveToken + "/" + path }

func (f *fakeTransport) IsFileURL(raw string) bool { return strings.HasPrefix(raw, fileBase) }

func (f *fakeTransport) sentTo(id int64, kind string) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.sent {
		if s.to == id && s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeTransport) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

// countingDir counts every directory call and can fail reads.
type countingDir struct {
	*storage.Memory

	mu       sync.Mutex
	reads    int
	writes   int
	failRead error
}

func (d *countingDir) read() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	return d.failRead
}

func (d *countingDir) wrote() {
	d.mu.Lock()
	d.writes++
	d.mu.Unlock()
}

func (d *countingDir) calls() (reads, writes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads, d.writes
}

func (d *countingDir) Recipients(ctx context.Context, tenantID string) ([]storage.Recipient, error) {
	if err := d.read(); err != nil {
		return nil, err
	}
	return d.Memory.Recipients(ctx, tenantID)
}

func (d *countingDir) Recipient(ctx context.Context, tenantID string, id int64) (storage.Recipient, bool, error) {
	if err := d.read(); err != nil {
		return storage.Recipient{}, false, err
	}
	return d.Memory.Recipient(ctx, tenantID, id)
}

func (d *countingDir) IsTenantAdmin(ctx context.Context, tenantID string, userID int64) (bool, error) {
	if err := d.read(); err != nil {
		return false, err
	}
	return d.Memory.IsTenantAdmin(ctx, tenantID, userID)
}

func (d *countingDir) SetReachable(ctx context.Context, tenantID string, id int64, reachable bool) error {
	d.wrote()
	return d.Memory.SetReachable(ctx, tenantID, id, reachable)
}

func (d *countingDir) DeleteRecipient(ctx context.Context, tenantID string, id int64) error {
	d.wrote()
	return d.Memory.DeleteRecipient(ctx, tenantID, id)
}

type fixture struct {
	dir    *countingDir
	tr     *fakeTransport
	svc    *Service
	sleeps []time.Duration
}

func newFixture(t *testing.T, cfg Config, recipients ...storage.Recipient) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := storage.NewMemory()
	if err := mem.AddTenantAdmin(ctx, tenantName, adminID); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	for _, r := range recipients {
		if r.TenantID == "" {
			r.TenantID = tenantName
		}
		if err := mem.UpsertRecipient(ctx, r); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	f := &fixture{dir: &countingDir{Memory: mem}, tr: newFakeTransport()}
	f.svc = New(cfg, Deps{
		Directory: f.dir,
		Transport: f.tr,
		Sleep: func(ctx context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return ctx.Err()
		},
	}, nopLogger())
	return f
}

func (f *fixture) recipient(t *testing.T, id int64) (storage.Recipient, bool) {
	t.Helper()
	r, ok, err := f.dir.Memory.Recipient(context.Background(), tenantName, id)
	if err != nil {
		t.Fatalf("recipient %d: %v", id, err)
	}
	return r, ok
}

func postRequest() Request {
	return Request{
		TenantID:    tenantName,
		InitiatorID: adminID,
		Content: Content{
			Kind:    KindPost,
			Link:    "https://example.com/sale",
			Caption: Caption{Primary: "Распродажа", Fallback: "Sale"},
		},
	}
}

func photoRequest(ref string) Request {
	return Request{
		TenantID:    tenantName,
		InitiatorID: adminID,
		Content: Content{
			Kind:    KindPhoto,
			Media:   ref,
			Caption: Caption{Primary: "Новинка", Fallback: "New"},
		},
	}
}

var errNetwork = errors.New("read tcp: connection reset by peer")

func nopLogger() logx.Logger { return logx.Nop() }
