// Package sanitize derives filesystem- and header-safe download filenames
// from media titles.
package sanitize

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// MaxFilenameLength is the maximum allowed length for the filename base.
	MaxFilenameLength = 120
	// DefaultExt is the default extension used when none is provided.
	DefaultExt = "mp4"
	// DefaultName is the replacement name when the title is empty.
	DefaultName = "video"
)

var (
	unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
	// Control characters break Content-Disposition headers.
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]+`)
)

// ToSafeFilename builds a cross-platform safe filename from title and
// extension (without dot in ext).
func ToSafeFilename(title, ext string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = DefaultName
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	name = controlChars.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if len(name) > MaxFilenameLength {
		name = name[:MaxFilenameLength]
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = DefaultExt
	}
	return filepath.Clean(name + "." + ext)
}

// ContentDisposition builds an attachment Content-Disposition header value
// with a quoted, sanitized filename.
func ContentDisposition(title, ext string) string {
	name := ToSafeFilename(title, ext)
	// Quotes inside the name would terminate the quoted-string early.
	name = strings.ReplaceAll(name, `"`, "")
	return `attachment; filename="` + name + `"`
}
