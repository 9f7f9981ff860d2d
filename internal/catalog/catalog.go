// Package catalog turns the raw variant list for a media item into the small
// ordered menu of user-facing download choices: one entry per resolution
// bucket plus audio-only.
package catalog

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/ytget/ytgate/internal/errs"
	"github.com/ytget/ytgate/internal/media"
)

// SizeUnknown is the display placeholder when the source declares no length.
const SizeUnknown = "unknown"

// AudioBucket is the label of the audio-only menu bucket.
const AudioBucket = "audio"

// bucket is one resolution class. A variant falls into the bucket when its
// effective height is in [minHeight, maxHeight); maxHeight zero means
// unbounded.
type bucket struct {
	label     string
	minHeight int
	maxHeight int
}

// videoBuckets is the fixed bucket priority order. Selection is
// first-match-wins in the extractor's source order, deliberately not
// highest-bitrate; the tie-break between qualifying variants is source
// order alone.
var videoBuckets = []bucket{
	{label: "1080p", minHeight: 1080, maxHeight: 0},
	{label: "720p", minHeight: 720, maxHeight: 1080},
	{label: "480p", minHeight: 480, maxHeight: 720},
	{label: "360p", minHeight: 360, maxHeight: 480},
}

func (b bucket) contains(height int) bool {
	if height < b.minHeight {
		return false
	}
	return b.maxHeight == 0 || height < b.maxHeight
}

// Build derives the ordered format menu from resolved media info. Buckets are
// filled in priority order 1080p > 720p > 480p > 360p > audio; a bucket left
// unfilled is omitted. Build fails with errs.ErrNoSuitableFormats only when
// every bucket is empty.
func Build(info *media.Info, policy media.ContainerPolicy) ([]media.MenuEntry, error) {
	var menu []media.MenuEntry

	for _, b := range videoBuckets {
		for i := range info.Variants {
			v := &info.Variants[i]
			if !v.HasVideo || !policy.Video.Has(v.Container) {
				continue
			}
			if !b.contains(v.ResolvedHeight()) {
				continue
			}
			menu = append(menu, entry(b.label, v))
			break
		}
	}

	for i := range info.Variants {
		v := &info.Variants[i]
		if !v.AudioOnly() || !policy.Audio.Has(v.Container) {
			continue
		}
		menu = append(menu, entry(AudioBucket, v))
		break
	}

	if len(menu) == 0 {
		return nil, fmt.Errorf("%w: %d variants, none qualified", errs.ErrNoSuitableFormats, len(info.Variants))
	}
	return menu, nil
}

func entry(label string, v *media.Variant) media.MenuEntry {
	return media.MenuEntry{
		Bucket:      label,
		ID:          v.ID,
		Ext:         v.Container,
		SizeDisplay: sizeDisplay(v.Size),
	}
}

// sizeDisplay is presentational only and carries no contract beyond being
// informational.
func sizeDisplay(size int64) string {
	if size <= 0 {
		return SizeUnknown
	}
	return humanize.Bytes(uint64(size))
}
