package server

import "github.com/rs/zerolog"

// downloadPhase tracks where a /download request is in its lifecycle. Phases
// only move forward; once terminal (done or failed) they never change.
type downloadPhase int

const (
	phaseReceived downloadPhase = iota
	phasePlanning
	phaseDirectStreaming
	phaseFetchingTracks
	phaseMuxing
	phaseDone
	phaseFailed
)

func (p downloadPhase) String() string {
	switch p {
	case phaseReceived:
		return "received"
	case phasePlanning:
		return "planning"
	case phaseDirectStreaming:
		return "direct_streaming"
	case phaseFetchingTracks:
		return "fetching_tracks"
	case phaseMuxing:
		return "muxing"
	case phaseDone:
		return "done"
	case phaseFailed:
		return "failed"
	}
	return "unknown"
}

// progress logs one-way phase transitions for a single download request.
type progress struct {
	logger zerolog.Logger
	phase  downloadPhase
}

func newProgress(logger zerolog.Logger) *progress {
	return &progress{logger: logger, phase: phaseReceived}
}

// advance moves to the next phase. Moves backwards or out of a terminal
// phase are ignored.
func (p *progress) advance(next downloadPhase) {
	if p.phase == phaseDone || p.phase == phaseFailed {
		return
	}
	if next <= p.phase {
		return
	}
	p.logger.Debug().
		Str("from", p.phase.String()).
		Str("to", next.String()).
		Msg("download phase")
	p.phase = next
}

func (p *progress) fail() { p.advance(phaseFailed) }
