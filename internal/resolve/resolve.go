// Package resolve wraps the metadata extraction library behind a single
// opaque capability: resolve a source URL into media info, or fail with a
// classified upstream error. The extractor's multi-client fallback heuristics
// stay inside this package and are not formalized anywhere else.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	yterrs "github.com/ytget/ytdlp/errs"
	"github.com/ytget/ytdlp/types"
	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/ytgate/internal/errs"
	"github.com/ytget/ytgate/internal/log"
	"github.com/ytget/ytgate/internal/media"
	"github.com/ytget/ytgate/internal/mimeext"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 3 * time.Second
)

// clientIdentity is one innertube client persona tried by the retry ladder.
type clientIdentity struct {
	name    string
	version string
}

// identityLadder lists the client personas in fallback order. The first is
// the least challenged; later entries trade capabilities for reachability.
var identityLadder = []clientIdentity{
	{name: "ANDROID", version: "20.10.38"},
	{name: "IOS", version: "19.45.4"},
	{name: "WEB", version: "2.20250312.04.00"},
}

// extractor is the slice of the ytdlp API the resolver consumes.
type extractor interface {
	ResolveURL(ctx context.Context, videoURL string) (string, *ytdlp.VideoInfo, error)
}

// extractorFactory builds an extractor for one client persona and an
// optional format selector ("itag=NN" or empty).
type extractorFactory func(id clientIdentity, formatSelector string) extractor

func ytdlpFactory(id clientIdentity, formatSelector string) extractor {
	d := ytdlp.New().WithInnertubeClient(id.name, id.version)
	if formatSelector != "" {
		d = d.WithFormat(formatSelector, "")
	}
	return d
}

// Config bounds the resolver's network behavior.
type Config struct {
	// Timeout bounds one extraction attempt.
	Timeout time.Duration
	// MaxAttempts bounds the retry ladder. Definitive upstream failures
	// (gone, gated) are never retried.
	MaxAttempts int
}

// Resolver resolves source URLs through the metadata extraction library.
type Resolver struct {
	cfg     Config
	factory extractorFactory
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Resolver{cfg: cfg, factory: ytdlpFactory}
}

// Resolve fetches title and available variants for a source URL. The error,
// when non-nil, is already classified into the gateway taxonomy.
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (*media.Info, error) {
	_, info, err := r.attempt(ctx, sourceURL, "")
	if err != nil {
		return nil, err
	}
	return toMediaInfo(info), nil
}

// TrackURL resolves the transient delivery URL for one specific variant.
// Callers re-resolve per download; delivery URLs expire and are never cached.
func (r *Resolver) TrackURL(ctx context.Context, sourceURL string, formatID int) (string, error) {
	finalURL, _, err := r.attempt(ctx, sourceURL, fmt.Sprintf("itag=%d", formatID))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(finalURL) == "" {
		return "", fmt.Errorf("%w: empty delivery url for itag %d", errs.ErrInternal, formatID)
	}
	return finalURL, nil
}

// attempt walks the identity ladder with capped exponential backoff.
func (r *Resolver) attempt(ctx context.Context, sourceURL, selector string) (string, *ytdlp.VideoInfo, error) {
	logger := log.WithComponent("resolve")
	backoff := initialBackoff
	var lastErr error

	for i := 0; i < r.cfg.MaxAttempts; i++ {
		id := identityLadder[i%len(identityLadder)]

		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		finalURL, info, err := r.factory(id, selector).ResolveURL(attemptCtx, sourceURL)
		cancel()

		if err == nil {
			return finalURL, info, nil
		}

		classified := classify(err)
		logger.Warn().
			Str("client", id.name).
			Int("attempt", i+1).
			Err(err).
			Msg("extraction attempt failed")

		if !retryable(classified) {
			return "", nil, classified
		}
		lastErr = classified

		select {
		case <-ctx.Done():
			return "", nil, fmt.Errorf("%w: %v", errs.ErrInternal, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return "", nil, lastErr
}

// retryable reports whether another persona may succeed where this one
// failed. Definitive answers about the video itself are final.
func retryable(err error) bool {
	switch {
	case errors.Is(err, errs.ErrUpstreamUnavailable),
		errors.Is(err, errs.ErrUpstreamGated):
		return false
	default:
		return true
	}
}

// classify maps extractor errors into the gateway taxonomy exactly once.
// ytdlp sentinels are matched first, then the shared upstream-signature
// table; leftovers become ErrInternal.
func classify(err error) error {
	switch {
	case errors.Is(err, yterrs.ErrVideoUnavailable),
		errors.Is(err, yterrs.ErrPrivate),
		errors.Is(err, yterrs.ErrGeoBlocked):
		return fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	case errors.Is(err, yterrs.ErrAgeRestricted):
		return fmt.Errorf("%w: %v", errs.ErrUpstreamGated, err)
	case errors.Is(err, yterrs.ErrRateLimited):
		return fmt.Errorf("%w: %v", errs.ErrUpstreamThrottled, err)
	}
	return errs.ClassifyUpstream(err)
}

// toMediaInfo projects the extractor's format list into the gateway model,
// preserving the extractor's native ordering.
func toMediaInfo(info *ytdlp.VideoInfo) *media.Info {
	out := &media.Info{Title: info.Title, Variants: make([]media.Variant, 0, len(info.Formats))}
	for _, f := range info.Formats {
		out.Variants = append(out.Variants, toVariant(f))
	}
	return out
}

func toVariant(f types.Format) media.Variant {
	codecs := mimeext.Codecs(f.MimeType)
	base := mimeext.Base(f.MimeType)
	hasVideo := strings.HasPrefix(base, "video/") && hasVideoCodec(codecs)
	hasAudio := strings.HasPrefix(base, "audio/") || hasAudioCodec(codecs)

	return media.Variant{
		ID:         f.Itag,
		Container:  mimeext.ExtFromMime(f.MimeType),
		Label:      f.Quality,
		HasVideo:   hasVideo,
		HasAudio:   hasAudio,
		Size:       f.Size,
		Bitrate:    f.Bitrate,
		AudioCodec: audioCodecFamily(codecs),
	}
}

func hasVideoCodec(codecs []string) bool {
	if len(codecs) == 0 {
		// No codecs parameter: trust the video/ MIME prefix.
		return true
	}
	for _, c := range codecs {
		if !isAudioCodec(c) {
			return true
		}
	}
	return false
}

func hasAudioCodec(codecs []string) bool {
	for _, c := range codecs {
		if isAudioCodec(c) {
			return true
		}
	}
	return false
}

func isAudioCodec(codec string) bool {
	switch {
	case strings.HasPrefix(codec, "mp4a"),
		strings.HasPrefix(codec, "opus"),
		strings.HasPrefix(codec, "vorbis"),
		strings.HasPrefix(codec, "ac-3"),
		strings.HasPrefix(codec, "ec-3"):
		return true
	}
	return false
}

// audioCodecFamily normalizes the declared audio codec into the family names
// the remux engine understands.
func audioCodecFamily(codecs []string) string {
	for _, c := range codecs {
		switch {
		case strings.HasPrefix(c, "mp4a"):
			return "aac"
		case strings.HasPrefix(c, "opus"):
			return "opus"
		case strings.HasPrefix(c, "vorbis"):
			return "vorbis"
		}
	}
	return ""
}

// Canonicalize validates a source URL and reduces it to its canonical watch
// form, used as the cache key. Invalid or non-video URLs fail with
// errs.ErrInvalidInput.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: malformed url", errs.ErrInvalidInput)
	}
	host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		switch {
		case strings.HasPrefix(u.Path, "/watch"):
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.Trim(strings.TrimPrefix(u.Path, "/embed/"), "/")
		}
	default:
		return "", fmt.Errorf("%w: unsupported host %q", errs.ErrInvalidInput, u.Host)
	}
	if id == "" {
		return "", fmt.Errorf("%w: no video id in url", errs.ErrInvalidInput)
	}
	return "https://www.youtube.com/watch?v=" + id, nil
}
