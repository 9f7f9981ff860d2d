package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yterrs "github.com/ytget/ytdlp/errs"
	"github.com/ytget/ytdlp/types"
	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/ytgate/internal/errs"
)

type stubExtractor struct {
	url  string
	info *ytdlp.VideoInfo
	err  error
}

func (s stubExtractor) ResolveURL(_ context.Context, _ string) (string, *ytdlp.VideoInfo, error) {
	return s.url, s.info, s.err
}

// scriptedFactory returns one stub per attempt, recording the personas used.
func scriptedFactory(t *testing.T, script []stubExtractor, clients *[]string) extractorFactory {
	i := 0
	return func(id clientIdentity, _ string) extractor {
		if i >= len(script) {
			t.Fatalf("unexpected attempt %d", i+1)
		}
		*clients = append(*clients, id.name)
		s := script[i]
		i++
		return s
	}
}

func newTestResolver(factory extractorFactory) *Resolver {
	r := New(Config{Timeout: time.Second, MaxAttempts: 3})
	r.factory = factory
	return r
}

func TestResolve_MapsFormats(t *testing.T) {
	info := &ytdlp.VideoInfo{
		Title: "A Video",
		Formats: []types.Format{
			{Itag: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Quality: "720p", Size: 1000},
			{Itag: 248, MimeType: `video/webm; codecs="vp9"`, Quality: "1080p"},
			{Itag: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000},
			{Itag: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 128000},
		},
	}
	var clients []string
	r := newTestResolver(scriptedFactory(t, []stubExtractor{{url: "u", info: info}}, &clients))

	got, err := r.Resolve(context.Background(), "https://www.youtube.com/watch?v=x")
	require.NoError(t, err)
	assert.Equal(t, "A Video", got.Title)
	require.Len(t, got.Variants, 4)

	muxed := got.Variants[0]
	assert.True(t, muxed.HasVideo)
	assert.True(t, muxed.HasAudio)
	assert.Equal(t, "mp4", muxed.Container)
	assert.Equal(t, "aac", muxed.AudioCodec)

	videoOnly := got.Variants[1]
	assert.True(t, videoOnly.HasVideo)
	assert.False(t, videoOnly.HasAudio)

	opus := got.Variants[2]
	assert.False(t, opus.HasVideo)
	assert.True(t, opus.HasAudio)
	assert.Equal(t, "opus", opus.AudioCodec)
	assert.Equal(t, "webm", opus.Container)

	m4a := got.Variants[3]
	assert.Equal(t, "m4a", m4a.Container)
	assert.Equal(t, "aac", m4a.AudioCodec)
}

func TestResolve_RetriesAcrossIdentityLadder(t *testing.T) {
	var clients []string
	script := []stubExtractor{
		{err: yterrs.ErrRateLimited},
		{err: errors.New("sign in to confirm you're not a bot")},
		{url: "u", info: &ytdlp.VideoInfo{Title: "ok"}},
	}
	r := newTestResolver(scriptedFactory(t, script, &clients))

	got, err := r.Resolve(context.Background(), "https://www.youtube.com/watch?v=x")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Title)
	assert.Equal(t, []string{"ANDROID", "IOS", "WEB"}, clients)
}

func TestResolve_DefinitiveFailureNotRetried(t *testing.T) {
	var clients []string
	script := []stubExtractor{{err: yterrs.ErrVideoUnavailable}}
	r := newTestResolver(scriptedFactory(t, script, &clients))

	_, err := r.Resolve(context.Background(), "https://www.youtube.com/watch?v=x")
	assert.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
	assert.Len(t, clients, 1)
}

func TestResolve_ExhaustedLadderReturnsLastError(t *testing.T) {
	var clients []string
	script := []stubExtractor{
		{err: yterrs.ErrRateLimited},
		{err: yterrs.ErrRateLimited},
		{err: yterrs.ErrRateLimited},
	}
	r := newTestResolver(scriptedFactory(t, script, &clients))

	_, err := r.Resolve(context.Background(), "https://www.youtube.com/watch?v=x")
	assert.ErrorIs(t, err, errs.ErrUpstreamThrottled)
	assert.Len(t, clients, 3)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{yterrs.ErrVideoUnavailable, errs.ErrUpstreamUnavailable},
		{yterrs.ErrPrivate, errs.ErrUpstreamUnavailable},
		{yterrs.ErrGeoBlocked, errs.ErrUpstreamUnavailable},
		{yterrs.ErrAgeRestricted, errs.ErrUpstreamGated},
		{yterrs.ErrRateLimited, errs.ErrUpstreamThrottled},
		{errors.New("sign in to confirm you're not a bot"), errs.ErrUpstreamChallenge},
		{errors.New("mystery"), errs.ErrInternal},
	}
	for _, c := range cases {
		assert.ErrorIs(t, classify(c.in), c.want, "input %v", c.in)
	}
}

func TestTrackURL(t *testing.T) {
	var clients []string
	script := []stubExtractor{{url: "https://cdn.example/track", info: &ytdlp.VideoInfo{}}}
	r := newTestResolver(scriptedFactory(t, script, &clients))

	u, err := r.TrackURL(context.Background(), "https://www.youtube.com/watch?v=x", 248)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/track", u)
}

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=abc123":           "https://www.youtube.com/watch?v=abc123",
		"https://www.youtube.com/shorts/xyz789":          "https://www.youtube.com/watch?v=xyz789",
		"https://www.youtube.com/embed/embedid":          "https://www.youtube.com/watch?v=embedid",
		" https://www.youtube.com/watch?v=padded\t":      "https://www.youtube.com/watch?v=padded",
	}
	for in, want := range cases {
		got, err := Canonicalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{
		"",
		"not a url",
		"https://example.com/watch?v=abc",
		"https://www.youtube.com/playlist?list=PL123",
	} {
		_, err := Canonicalize(bad)
		assert.ErrorIs(t, err, errs.ErrInvalidInput, bad)
	}
}
