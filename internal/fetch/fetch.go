// Package fetch materializes one elementary stream into a temporary track
// file, or forwards it byte-for-byte for direct plans. The fetcher performs
// exactly one attempt per call; retry policy belongs to the metadata layer
// that hands out the delivery URLs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/ytget/ytgate/internal/errs"
)

const (
	copyBufferSize = 32 * 1024

	headerUserAgent      = "User-Agent"
	headerAccept         = "Accept"
	headerAcceptEncoding = "Accept-Encoding"

	userAgentValue = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
)

// Config tunes the fetcher.
type Config struct {
	// Timeout bounds one complete track transfer.
	Timeout time.Duration
	// RateLimitBps caps the speed of each individual transfer in bytes per
	// second. Zero disables.
	RateLimitBps int64
}

// Fetcher downloads elementary streams over HTTP.
type Fetcher struct {
	client *http.Client
	cfg    Config
}

// New creates a Fetcher. A nil client uses a default http.Client; the
// per-transfer timeout is enforced via request contexts, not the client.
func New(client *http.Client, cfg Config) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client, cfg: cfg}
}

// FetchTrack performs one attempt to download url into dest. Any I/O or
// upstream error surfaces as errs.ErrTrackFetchFailed; partial files are
// left for the owning Session to remove.
func (f *Fetcher) FetchTrack(ctx context.Context, url, dest string) (int64, error) {
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %v", errs.ErrTrackFetchFailed, dest, err)
	}
	defer func() { _ = out.Close() }()

	n, err := f.transfer(ctx, url, out)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: empty track body", errs.ErrTrackFetchFailed)
	}
	return n, nil
}

// Stream forwards the elementary stream at url byte-for-byte into w. Used
// for direct pass-through plans; no local buffering.
func (f *Fetcher) Stream(ctx context.Context, url string, w io.Writer) (int64, error) {
	return f.transfer(ctx, url, w)
}

func (f *Fetcher) transfer(ctx context.Context, url string, w io.Writer) (int64, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	// One limiter per transfer: the cap applies to each download, not to
	// the aggregate across concurrent requests.
	var limiter *rate.Limiter
	if f.cfg.RateLimitBps > 0 {
		limiter = rate.NewLimiter(rate.Limit(f.cfg.RateLimitBps), copyBufferSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", errs.ErrTrackFetchFailed, err)
	}
	req.Header.Set(headerUserAgent, userAgentValue)
	req.Header.Set(headerAccept, "*/*")
	req.Header.Set(headerAcceptEncoding, "identity")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrTrackFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return 0, fmt.Errorf("%w: upstream status %d", errs.ErrTrackFetchFailed, resp.StatusCode)
	}

	var written int64
	buf := make([]byte, copyBufferSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if limiter != nil {
				if werr := limiter.WaitN(ctx, n); werr != nil {
					return written, fmt.Errorf("%w: %v", errs.ErrTrackFetchFailed, werr)
				}
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("%w: write: %v", errs.ErrTrackFetchFailed, werr)
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("%w: read body: %v", errs.ErrTrackFetchFailed, rerr)
		}
	}
}
