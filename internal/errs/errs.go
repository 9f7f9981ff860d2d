// Package errs defines the error taxonomy surfaced by the gateway and the
// mapping from upstream extractor failures into it. Classification happens
// once, at the boundary where the metadata layer's error is received;
// everything downstream matches sentinels with errors.Is.
package errs

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrInvalidInput indicates a malformed or missing source URL or format id.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamUnavailable indicates the source video is gone, private or
	// region-blocked.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamGated indicates the source requires age verification or sign-in.
	ErrUpstreamGated = errors.New("upstream gated")
	// ErrUpstreamThrottled indicates rate limiting by the metadata provider.
	ErrUpstreamThrottled = errors.New("upstream throttled")
	// ErrUpstreamChallenge indicates a bot challenge from the metadata provider.
	ErrUpstreamChallenge = errors.New("upstream challenge")
	// ErrNoSuitableFormats indicates no variant qualified for any menu bucket.
	ErrNoSuitableFormats = errors.New("no suitable formats")
	// ErrFormatNotFound indicates the requested format id matches no variant.
	ErrFormatNotFound = errors.New("format not found")
	// ErrNoAudioAvailable indicates a merge plan found no audio-capable variant.
	ErrNoAudioAvailable = errors.New("no audio available")
	// ErrTrackFetchFailed indicates I/O failure while downloading a track.
	ErrTrackFetchFailed = errors.New("track fetch failed")
	// ErrRemuxFailed indicates the remux subprocess failed.
	ErrRemuxFailed = errors.New("remux failed")
	// ErrInternal is the fallback for unclassified failures.
	ErrInternal = errors.New("internal error")
)

// upstreamSignatures maps known upstream-failure phrases to taxonomy
// sentinels. Matching is substring, case-insensitive, first match wins.
var upstreamSignatures = []struct {
	marker string
	err    error
}{
	{"sign in to confirm you", ErrUpstreamChallenge},
	{"not a bot", ErrUpstreamChallenge},
	{"bot check", ErrUpstreamChallenge},
	{"captcha", ErrUpstreamChallenge},
	{"rate limit", ErrUpstreamThrottled},
	{"too many requests", ErrUpstreamThrottled},
	{"quota", ErrUpstreamThrottled},
	{"age restricted", ErrUpstreamGated},
	{"age-restricted", ErrUpstreamGated},
	{"sign in", ErrUpstreamGated},
	{"login required", ErrUpstreamGated},
	{"geo blocked", ErrUpstreamUnavailable},
	{"available in your country", ErrUpstreamUnavailable},
	{"video unavailable", ErrUpstreamUnavailable},
	{"video is private", ErrUpstreamUnavailable},
	{"removed by the uploader", ErrUpstreamUnavailable},
}

// ClassifyUpstream maps an error from the metadata layer to a taxonomy
// sentinel by inspecting its text against the known upstream-failure
// signatures. Errors already carrying a sentinel pass through unchanged;
// unrecognized errors fall through to ErrInternal.
func ClassifyUpstream(err error) error {
	if err == nil {
		return nil
	}
	if Is(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range upstreamSignatures {
		if strings.Contains(msg, sig.marker) {
			return sig.err
		}
	}
	return ErrInternal
}

var sentinels = []error{
	ErrInvalidInput,
	ErrUpstreamUnavailable,
	ErrUpstreamGated,
	ErrUpstreamThrottled,
	ErrUpstreamChallenge,
	ErrNoSuitableFormats,
	ErrFormatNotFound,
	ErrNoAudioAvailable,
	ErrTrackFetchFailed,
	ErrRemuxFailed,
	ErrInternal,
}

// Is reports whether err wraps any taxonomy sentinel.
func Is(err error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// HTTPStatus returns the response status code for a classified error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusGone
	case errors.Is(err, ErrUpstreamGated):
		return http.StatusUnavailableForLegalReasons
	case errors.Is(err, ErrUpstreamThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUpstreamChallenge):
		return http.StatusForbidden
	case errors.Is(err, ErrNoSuitableFormats),
		errors.Is(err, ErrFormatNotFound),
		errors.Is(err, ErrNoAudioAvailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a short machine-readable identifier for a classified error,
// used in JSON error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrUpstreamGated):
		return "upstream_gated"
	case errors.Is(err, ErrUpstreamThrottled):
		return "upstream_throttled"
	case errors.Is(err, ErrUpstreamChallenge):
		return "upstream_challenge"
	case errors.Is(err, ErrNoSuitableFormats):
		return "no_suitable_formats"
	case errors.Is(err, ErrFormatNotFound):
		return "format_not_found"
	case errors.Is(err, ErrNoAudioAvailable):
		return "no_audio_available"
	case errors.Is(err, ErrTrackFetchFailed):
		return "track_fetch_failed"
	case errors.Is(err, ErrRemuxFailed):
		return "remux_failed"
	default:
		return "internal"
	}
}
