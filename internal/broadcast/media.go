package broadcast

import (
	"context"
	"net/url"
	"path"
	"strings"

	kit "castbot/internal/transport"
	"castbot/pkg/logx"
)

type refKind int

const (
	refEmpty refKind = iota
	refHandle
	refOwnURL
	refExternalURL
	refUnusable
)

// resolvedMedia is a sendable photo reference plus the one alternative the
// probe may swap to.
type resolvedMedia struct {
	media    kit.Media
	swap     func(ctx context.Context) (kit.Media, bool)
	degraded bool
}

type mediaResolver struct {
	files       kit.FileServer
	placeholder string
	log         logx.Logger
}

func classifyRef(ref string, files kit.FileServer) refKind {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return refEmpty
	case !strings.Contains(ref, "://") && !strings.ContainsAny(ref, "/\\"):
		return refHandle
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return refUnusable
	}
	if files.IsFileURL(ref) {
		return refOwnURL
	}
	return refExternalURL
}

// Resolve turns ref into a media reference valid for the current session.
// Own file-host URLs are re-resolved through the file metadata API because
// the handle embedded in them expires independently of the URL.
func (m mediaResolver) Resolve(ctx context.Context, ref string) (resolvedMedia, error) {
	ref = strings.TrimSpace(ref)
	switch classifyRef(ref, m.files) {
	case refHandle:
		return resolvedMedia{
			media: kit.Media{FileID: ref},
			swap:  func(ctx context.Context) (kit.Media, bool) { return m.freshURL(ctx, ref) },
		}, nil

	case refOwnURL:
		seg := lastSegment(ref)
		if fresh, ok := m.freshURL(ctx, seg); ok {
			return resolvedMedia{
				media: fresh,
				swap:  handleSwap(seg),
			}, nil
		}
		m.log.Debug("file metadata lookup failed; using url segment as handle", logx.String("handle", seg))
		return resolvedMedia{
			media: kit.Media{FileID: seg},
			swap: func(context.Context) (kit.Media, bool) {
				return kit.Media{URL: ref}, true
			},
		}, nil

	case refExternalURL:
		return resolvedMedia{media: kit.Media{URL: ref}}, nil
	}
	return m.degrade(ref)
}

func (m mediaResolver) degrade(ref string) (resolvedMedia, error) {
	if m.placeholder == "" {
		m.log.Error("photo reference unusable and no placeholder configured", logx.String("ref", ref))
		return resolvedMedia{}, ErrMediaUnavailable
	}
	m.log.Warn("photo reference unusable; delivering placeholder", logx.String("ref", ref), logx.String("placeholder", m.placeholder))
	return resolvedMedia{media: kit.Media{URL: m.placeholder}, degraded: true}, nil
}

func (m mediaResolver) freshURL(ctx context.Context, handle string) (kit.Media, bool) {
	if handle == "" {
		return kit.Media{}, false
	}
	meta, err := m.files.FileMetadata(ctx, handle)
	if err != nil || meta.Path == "" {
		return kit.Media{}, false
	}
	return kit.Media{URL: m.files.FileURL(meta.Path)}, true
}

func handleSwap(handle string) func(context.Context) (kit.Media, bool) {
	return func(context.Context) (kit.Media, bool) {
		if handle == "" {
			return kit.Media{}, false
		}
		return kit.Media{FileID: handle}, true
	}
}

func lastSegment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if seg == "." || seg == "/" {
		return ""
	}
	return seg
}

// probeResult reports the media the fan-out will use and whether the probe
// recipient already received it. unverified marks a fan-out that goes ahead
// with a reference the initiator could not receive.
type probeResult struct {
	media      kit.Media
	degraded   bool
	unverified bool
	delivered  bool
}

// Probe validates the resolved reference by sending it to one recipient
// (the initiator). A failed probe tries the handle/URL swap exactly once and
// then commits to the placeholder, or to the original reference when no
// placeholder is configured.
func (m mediaResolver) Probe(ctx context.Context, ref string, send func(context.Context, kit.Media) error) (probeResult, error) {
	res, err := m.Resolve(ctx, ref)
	if err != nil {
		return probeResult{}, err
	}
	if res.degraded {
		return probeResult{media: res.media, degraded: true}, nil
	}

	perr := send(ctx, res.media)
	if perr == nil {
		return probeResult{media: res.media, delivered: true}, nil
	}
	m.log.Warn("media probe failed", logx.String("media", res.media.String()), logx.Err(perr))

	if res.swap != nil {
		if alt, ok := res.swap(ctx); ok && alt != res.media {
			serr := send(ctx, alt)
			if serr == nil {
				m.log.Info("media probe recovered with swapped reference", logx.String("media", alt.String()))
				return probeResult{media: alt, delivered: true}, nil
			}
			m.log.Warn("swapped media probe failed", logx.String("media", alt.String()), logx.Err(serr))
		}
	}

	if m.placeholder == "" {
		m.log.Warn("media probe failed and no placeholder configured; continuing with original reference",
			logx.String("media", res.media.String()))
		return probeResult{media: res.media, degraded: true, unverified: true}, nil
	}
	d, err := m.degrade(ref)
	if err != nil {
		return probeResult{}, err
	}
	return probeResult{media: d.media, degraded: true}, nil
}
