// Package mimeext maps between MIME types and container extensions, in both
// directions: extractor MIME strings to container names for the format menu,
// and container names to response Content-Type values.
package mimeext

import (
	"strings"
)

const (
	// DefaultExt is the extension used when a MIME type is unknown or empty.
	DefaultExt = "mp4"
	// DefaultContentType is the response type for unknown containers.
	DefaultContentType = "application/octet-stream"

	// ExtM4A is the file extension for MP4 audio.
	ExtM4A = "m4a"
	// ExtWebM is the file extension for WebM media.
	ExtWebM = "webm"

	// MimeVideoMP4 is the MIME type for MP4 video.
	MimeVideoMP4 = "video/mp4"
	// MimeAudioMP4 is the MIME type for MP4 audio.
	MimeAudioMP4 = "audio/mp4"
	// MimeVideoWebM is the MIME type for WebM video.
	MimeVideoWebM = "video/webm"
	// MimeAudioWebM is the MIME type for WebM audio.
	MimeAudioWebM = "audio/webm"
)

// Base returns the MIME type without parameters ("video/mp4; codecs=..."
// becomes "video/mp4").
func Base(mime string) string {
	mime = strings.TrimSpace(mime)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return strings.ToLower(mime)
}

// ExtFromMime returns the container extension (without dot) for a MIME type.
// Audio MP4 maps to m4a. Falls back to the MIME subtype, then mp4.
func ExtFromMime(mime string) string {
	base := Base(mime)
	if base == "" {
		return DefaultExt
	}
	switch base {
	case MimeVideoMP4:
		return DefaultExt
	case MimeAudioMP4:
		return ExtM4A
	case MimeVideoWebM, MimeAudioWebM:
		return ExtWebM
	}
	parts := strings.Split(base, "/")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return DefaultExt
}

// ContentType returns the response Content-Type for a container extension.
// audioOnly selects the audio/* form for containers carrying either kind.
func ContentType(ext string, audioOnly bool) string {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".") {
	case "mp4":
		if audioOnly {
			return MimeAudioMP4
		}
		return MimeVideoMP4
	case ExtM4A:
		return MimeAudioMP4
	case ExtWebM:
		if audioOnly {
			return MimeAudioWebM
		}
		return MimeVideoWebM
	case "mp3":
		return "audio/mpeg"
	case "3gpp", "3gp":
		return "video/3gpp"
	default:
		return DefaultContentType
	}
}

// Codecs returns the codec list declared in a MIME type's codecs parameter,
// lowercased ("video/mp4; codecs=\"avc1.64001F, mp4a.40.2\"" yields
// ["avc1.64001f", "mp4a.40.2"]).
func Codecs(mime string) []string {
	lower := strings.ToLower(mime)
	i := strings.Index(lower, "codecs=")
	if i < 0 {
		return nil
	}
	val := strings.TrimSpace(lower[i+len("codecs="):])
	val = strings.Trim(val, `"'`)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
