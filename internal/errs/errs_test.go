package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyUpstream_Signatures(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"Sign in to confirm you're not a bot", ErrUpstreamChallenge},
		{"upstream rate limit exceeded", ErrUpstreamThrottled},
		{"This video is age restricted", ErrUpstreamGated},
		{"The uploader has not made this video available in your country", ErrUpstreamUnavailable},
		{"Video unavailable", ErrUpstreamUnavailable},
		{"some totally novel explosion", ErrInternal},
	}
	for _, c := range cases {
		if got := ClassifyUpstream(errors.New(c.msg)); !errors.Is(got, c.want) {
			t.Fatalf("classify(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

func TestClassifyUpstream_SentinelPassthrough(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", ErrUpstreamGated)
	if got := ClassifyUpstream(wrapped); !errors.Is(got, ErrUpstreamGated) {
		t.Fatalf("sentinel not passed through: %v", got)
	}
	if ClassifyUpstream(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		ErrInvalidInput:        http.StatusBadRequest,
		ErrUpstreamUnavailable: http.StatusGone,
		ErrUpstreamGated:       http.StatusUnavailableForLegalReasons,
		ErrUpstreamThrottled:   http.StatusTooManyRequests,
		ErrUpstreamChallenge:   http.StatusForbidden,
		ErrNoSuitableFormats:   http.StatusNotFound,
		ErrFormatNotFound:      http.StatusNotFound,
		ErrNoAudioAvailable:    http.StatusNotFound,
		ErrTrackFetchFailed:    http.StatusInternalServerError,
		ErrRemuxFailed:         http.StatusInternalServerError,
		ErrInternal:            http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := HTTPStatus(fmt.Errorf("wrap: %w", err)); got != want {
			t.Fatalf("status(%v) = %d, want %d", err, got, want)
		}
	}
}
