// Package media defines the data model shared by the catalog, planner,
// fetcher and remux components: stream variants as reported by the metadata
// layer and the user-facing format menu derived from them.
package media

import (
	"regexp"
	"strconv"
	"strings"
)

var heightRe = regexp.MustCompile(`([0-9]{3,4})p`)

// Variant is one encoded representation of a media item. It is immutable and
// sourced from the metadata extractor per request, never persisted.
type Variant struct {
	// ID is the extractor's opaque format identifier (itag).
	ID int
	// Container is the container format derived from the MIME subtype
	// (e.g. "mp4", "webm").
	Container string
	// Label is the extractor's resolution label when present (e.g. "720p").
	Label string
	// Height is the numeric frame height. When both Label and Height are
	// present, Height takes precedence for bucket assignment.
	Height int
	// HasVideo and HasAudio report which elementary tracks the variant carries.
	HasVideo bool
	HasAudio bool
	// Size is the declared byte size, zero when the source declares none.
	Size int64
	// Bitrate is the declared total bitrate, used only as a quality
	// tiebreaker for audio fallback selection.
	Bitrate int
	// AudioCodec is the audio codec family ("aac", "opus", "vorbis", ...)
	// when known. Relevant for audio-only variants feeding the remux engine.
	AudioCodec string
}

// ResolvedHeight returns the effective frame height for bucket assignment:
// the numeric height when declared, otherwise the height parsed from the
// resolution label, otherwise zero.
func (v Variant) ResolvedHeight() int {
	if v.Height > 0 {
		return v.Height
	}
	return ParseHeight(v.Label)
}

// AudioOnly reports whether the variant carries audio and no video.
func (v Variant) AudioOnly() bool {
	return v.HasAudio && !v.HasVideo
}

// ParseHeight extracts the numeric height from a resolution label like
// "720p" or "1080p60". Returns zero when the label has no height.
func ParseHeight(label string) int {
	m := heightRe.FindStringSubmatch(label)
	if len(m) >= 2 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	return 0
}

// Info is the result of resolving a source URL: a title plus the variants the
// extractor reported, in the extractor's native order. Lifetime is one
// request or one cache entry.
type Info struct {
	Title    string    `json:"title"`
	Variants []Variant `json:"variants"`
}

// FindVariant returns the variant with the given identifier, or nil when the
// identifier does not match any variant.
func (i *Info) FindVariant(id int) *Variant {
	for idx := range i.Variants {
		if i.Variants[idx].ID == id {
			return &i.Variants[idx]
		}
	}
	return nil
}

// MenuEntry is a user-facing projection of one chosen variant: the bucket
// label, the variant identifier to request for download, a display extension
// and a human-readable size.
type MenuEntry struct {
	Bucket      string `json:"label"`
	ID          int    `json:"id"`
	Ext         string `json:"ext"`
	SizeDisplay string `json:"sizeDisplay"`
}

// ContainerSet is a set of accepted container names, compared
// case-insensitively.
type ContainerSet map[string]struct{}

// NewContainerSet builds a set from container names.
func NewContainerSet(names ...string) ContainerSet {
	s := make(ContainerSet, len(names))
	for _, n := range names {
		n = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(n)), ".")
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether the container is in the set.
func (s ContainerSet) Has(container string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(container))]
	return ok
}

// Names returns the set's members in unspecified order.
func (s ContainerSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	return out
}

// ContainerPolicy is the configuration input deciding which containers
// qualify for the video buckets, for audio counterparts, and for direct
// pass-through streaming. Callers may vary these without changing the
// selection algorithms.
type ContainerPolicy struct {
	Video  ContainerSet
	Audio  ContainerSet
	Direct ContainerSet
}

// DefaultContainerPolicy mirrors the containers browsers can play back
// directly: mp4/webm video, m4a/mp4/webm audio.
func DefaultContainerPolicy() ContainerPolicy {
	return ContainerPolicy{
		Video:  NewContainerSet("mp4", "webm"),
		Audio:  NewContainerSet("m4a", "mp4", "webm"),
		Direct: NewContainerSet("mp4", "webm", "m4a"),
	}
}
