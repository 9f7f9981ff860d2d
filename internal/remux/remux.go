// Package remux combines a video track and an audio track into one container
// through an ffmpeg subprocess, streaming the result incrementally. Video is
// always stream-copied; audio is stream-copied when its codec is compatible
// with the target container and transcoded otherwise.
package remux

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/ytget/ytgate/internal/errs"
	"github.com/ytget/ytgate/internal/log"
)

const (
	defaultBinary       = "ffmpeg"
	defaultAudioBitrate = "192k"
	stderrTailLimit     = 4 * 1024

	// waitGrace bounds Wait after the context kills ffmpeg; a child process
	// inheriting the stdout pipe would otherwise hold Wait open forever.
	waitGrace = 3 * time.Second
)

// Config configures the engine.
type Config struct {
	// FFmpegPath is the ffmpeg binary to invoke.
	FFmpegPath string
	// AudioBitrate is the fixed target bitrate used when audio must be
	// transcoded (e.g. "192k").
	AudioBitrate string
}

// Job describes one remux: two local track files, the audio track's codec
// family, and the target container.
type Job struct {
	VideoPath  string
	AudioPath  string
	AudioCodec string // "aac", "opus", "vorbis" or empty when unknown
	Container  string // "mp4" or "webm"
}

// Engine runs remux jobs.
type Engine struct {
	cfg Config
}

// New creates an Engine, filling in defaults for empty config fields.
func New(cfg Config) *Engine {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = defaultBinary
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = defaultAudioBitrate
	}
	return &Engine{cfg: cfg}
}

// audioArgs returns the codec directive for the audio track: stream-copy
// when the source codec is already deliverable in the target container,
// otherwise a transcode to the container's common delivery codec at the
// fixed bitrate.
func (e *Engine) audioArgs(job Job) []string {
	switch strings.ToLower(job.Container) {
	case "webm":
		switch job.AudioCodec {
		case "opus", "vorbis":
			return []string{"-c:a", "copy"}
		}
		return []string{"-c:a", "libopus", "-b:a", e.cfg.AudioBitrate}
	default: // mp4 family
		if job.AudioCodec == "aac" {
			return []string{"-c:a", "copy"}
		}
		return []string{"-c:a", "aac", "-b:a", e.cfg.AudioBitrate}
	}
}

// args builds the full ffmpeg argument list. The output is laid out for
// streaming: fragmented mp4 needs no indexing pass, so bytes can be sent
// before the remux completes.
func (e *Engine) args(job Job) []string {
	out := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", job.VideoPath,
		"-i", job.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
	}
	out = append(out, e.audioArgs(job)...)
	switch strings.ToLower(job.Container) {
	case "webm":
		out = append(out, "-f", "webm")
	default:
		out = append(out, "-movflags", "frag_keyframe+empty_moov", "-f", "mp4")
	}
	return append(out, "pipe:1")
}

// Mux runs the remux subprocess, writing the muxed container incrementally
// to w. Cancelling ctx terminates the subprocess. On failure the output
// stream simply stops; already-written bytes are never "completed" into a
// valid file, which is what a partial fragmented container looks like to
// the client.
func (e *Engine) Mux(ctx context.Context, job Job, w io.Writer) error {
	logger := log.WithComponent("remux")

	args := e.args(job)
	cmd := exec.CommandContext(ctx, e.cfg.FFmpegPath, args...)
	cmd.WaitDelay = waitGrace
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug().
		Str("container", job.Container).
		Str("audio_codec", job.AudioCodec).
		Strs("args", args).
		Msg("starting remux subprocess")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", errs.ErrRemuxFailed, e.cfg.FFmpegPath, err)
	}
	err := cmd.Wait()
	if err != nil {
		if ctx.Err() != nil {
			// Client disconnect or timeout; the subprocess was killed on
			// purpose and its temp files belong to the session.
			return fmt.Errorf("%w: canceled: %v", errs.ErrRemuxFailed, ctx.Err())
		}
		return fmt.Errorf("%w: %v: %s", errs.ErrRemuxFailed, err, stderrTail(stderr.Bytes()))
	}
	return nil
}

func stderrTail(b []byte) string {
	if len(b) > stderrTailLimit {
		b = b[len(b)-stderrTailLimit:]
	}
	return strings.TrimSpace(string(b))
}
