package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytgate/internal/errs"
)

func TestFetchTrack_WritesFile(t *testing.T) {
	payload := bytes.Repeat([]byte("媒"), 10000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "identity", r.Header.Get("Accept-Encoding"))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	sess, err := NewSession(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()

	dest := sess.TrackPath("video", "mp4")
	n, err := New(nil, Config{}).FetchTrack(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetchTrack_UpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "audio.webm")
	_, err := New(nil, Config{}).FetchTrack(context.Background(), srv.URL, dest)
	assert.ErrorIs(t, err, errs.ErrTrackFetchFailed)
}

func TestFetchTrack_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "audio.m4a")
	_, err := New(nil, Config{}).FetchTrack(context.Background(), srv.URL, dest)
	assert.ErrorIs(t, err, errs.ErrTrackFetchFailed)
}

func TestFetchTrack_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	dest := filepath.Join(t.TempDir(), "video.webm")
	_, err := New(nil, Config{}).FetchTrack(ctx, srv.URL, dest)
	assert.ErrorIs(t, err, errs.ErrTrackFetchFailed)
}

func TestRateLimitIsPerTransfer(t *testing.T) {
	// One full burst per transfer. A limiter shared across transfers would
	// leave the second one draining a near-empty bucket at 10 bytes/sec.
	payload := bytes.Repeat([]byte("x"), copyBufferSize)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := New(nil, Config{RateLimitBps: 10})
	start := time.Now()
	for i := 0; i < 2; i++ {
		var sink bytes.Buffer
		n, err := f.Stream(context.Background(), srv.URL, &sink)
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), n)
	}
	assert.Less(t, time.Since(start), 2*time.Second, "each transfer should start with a fresh burst")
}

func TestStream_ForwardsBytes(t *testing.T) {
	payload := []byte("direct pass-through body")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := New(nil, Config{}).Stream(context.Background(), srv.URL, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestSession_CloseRemovesEverything(t *testing.T) {
	base := t.TempDir()
	sess, err := NewSession(base)
	require.NoError(t, err)

	video := sess.TrackPath("video", "mp4")
	audio := sess.TrackPath("audio", "webm")
	require.NoError(t, os.WriteFile(video, []byte("v"), 0o600))
	require.NoError(t, os.WriteFile(audio, []byte("a"), 0o600))

	require.NoError(t, sess.Close())
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Idempotent.
	assert.NoError(t, sess.Close())
}

func TestCleanupOrphans(t *testing.T) {
	base := t.TempDir()

	old := filepath.Join(base, sessionPrefix+"old")
	require.NoError(t, os.MkdirAll(old, 0o700))
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	fresh, err := NewSession(base)
	require.NoError(t, err)
	defer func() { _ = fresh.Close() }()

	unrelated := filepath.Join(base, "keep-me")
	require.NoError(t, os.MkdirAll(unrelated, 0o700))

	removed, err := CleanupOrphans(base, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, statErr := os.Stat(unrelated)
	assert.NoError(t, statErr)
}
