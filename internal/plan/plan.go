// Package plan decides the transfer strategy for a chosen variant: direct
// pass-through of a self-contained stream, or fetching separate video and
// audio tracks for a remux.
package plan

import (
	"fmt"

	"github.com/ytget/ytgate/internal/errs"
	"github.com/ytget/ytgate/internal/media"
)

// Kind is the transfer strategy.
type Kind int

const (
	// Direct forwards the selected variant byte-for-byte, no local
	// buffering and no remux.
	Direct Kind = iota
	// Merge fetches a video track and an audio track and combines them.
	Merge
)

func (k Kind) String() string {
	if k == Direct {
		return "direct"
	}
	return "merge"
}

// Plan is the per-request transfer decision. For Direct, Target is the
// variant to forward. For Merge, Target is the video track and Audio the
// selected audio counterpart.
type Plan struct {
	Kind   Kind
	Target media.Variant
	Audio  *media.Variant
}

// AudioFallback selects an audio source when no audio-only variant in an
// accepted container exists. Supplied by the metadata layer; the planner
// only invokes it.
type AudioFallback func(info *media.Info) *media.Variant

// HighestAudioQuality is the default fallback: the audio-capable variant
// with the highest declared bitrate, audio-only variants preferred.
func HighestAudioQuality(info *media.Info) *media.Variant {
	var best *media.Variant
	better := func(candidate, current *media.Variant) bool {
		if current == nil {
			return true
		}
		if candidate.AudioOnly() != current.AudioOnly() {
			return candidate.AudioOnly()
		}
		return candidate.Bitrate > current.Bitrate
	}
	for i := range info.Variants {
		v := &info.Variants[i]
		if !v.HasAudio {
			continue
		}
		if better(v, best) {
			best = v
		}
	}
	return best
}

// Planner computes transfer plans under a container policy.
type Planner struct {
	policy   media.ContainerPolicy
	fallback AudioFallback
}

// New creates a Planner. A nil fallback uses HighestAudioQuality.
func New(policy media.ContainerPolicy, fallback AudioFallback) *Planner {
	if fallback == nil {
		fallback = HighestAudioQuality
	}
	return &Planner{policy: policy, fallback: fallback}
}

// Decide returns the transfer plan for the variant identified by formatID.
// It fails with errs.ErrFormatNotFound when the identifier matches no
// variant, and with errs.ErrNoAudioAvailable when a merge is required but no
// audio-capable variant exists at all.
func (p *Planner) Decide(info *media.Info, formatID int) (Plan, error) {
	selected := info.FindVariant(formatID)
	if selected == nil {
		return Plan{}, fmt.Errorf("%w: id %d", errs.ErrFormatNotFound, formatID)
	}

	if p.directStreamable(selected) {
		return Plan{Kind: Direct, Target: *selected}, nil
	}

	audio := p.audioCounterpart(info, selected)
	if audio == nil {
		return Plan{}, fmt.Errorf("%w: for format id %d", errs.ErrNoAudioAvailable, formatID)
	}
	return Plan{Kind: Merge, Target: *selected, Audio: audio}, nil
}

// directStreamable reports whether the variant needs no counterpart track:
// video with muxed audio, or a self-contained audio-only stream, in a
// container accepted for direct delivery. Which containers qualify is
// configuration, not a hardcoded assumption.
func (p *Planner) directStreamable(v *media.Variant) bool {
	if !p.policy.Direct.Has(v.Container) {
		return false
	}
	if v.HasVideo && v.HasAudio {
		return true
	}
	return v.AudioOnly()
}

// audioCounterpart picks the audio track for a merge: the first remaining
// audio-only variant in an accepted audio container, in source order, then
// the injected highest-quality fallback.
func (p *Planner) audioCounterpart(info *media.Info, selected *media.Variant) *media.Variant {
	for i := range info.Variants {
		v := &info.Variants[i]
		if v.ID == selected.ID {
			continue
		}
		if v.AudioOnly() && p.policy.Audio.Has(v.Container) {
			return v
		}
	}
	if a := p.fallback(info); a != nil && a.HasAudio {
		return a
	}
	return nil
}
