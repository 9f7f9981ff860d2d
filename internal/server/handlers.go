package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ytget/ytgate/internal/catalog"
	"github.com/ytget/ytgate/internal/errs"
	"github.com/ytget/ytgate/internal/fetch"
	"github.com/ytget/ytgate/internal/media"
	"github.com/ytget/ytgate/internal/metrics"
	"github.com/ytget/ytgate/internal/mimeext"
	"github.com/ytget/ytgate/internal/plan"
	"github.com/ytget/ytgate/internal/remux"
	"github.com/ytget/ytgate/internal/resolve"
	"github.com/ytget/ytgate/internal/sanitize"
	"github.com/ytget/ytgate/internal/version"
)

type infoResponse struct {
	Title   string            `json:"title"`
	Formats []media.MenuEntry `json:"formats"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errs.HTTPStatus(err), errorResponse{
		Error:  errs.Code(err),
		Detail: err.Error(),
	})
}

// handleRoot reports liveness and build info.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": version.ApplicationName,
		"version": version.GetInfo(),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"status":  "ok",
	})
}

// resolveInfo returns media metadata for the canonical URL, from cache when
// fresh and from the resolver otherwise.
func (s *Server) resolveInfo(r *http.Request, canonical string) (*media.Info, error) {
	ctx := r.Context()
	if info, ok := s.store.Get(ctx, canonical); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return info, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	start := time.Now()
	info, err := s.resolver.Resolve(ctx, canonical)
	metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	s.store.Set(ctx, canonical, info)
	return info, nil
}

// handleInfo resolves the source URL and returns the format menu.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	canonical, err := resolve.Canonicalize(r.URL.Query().Get("url"))
	if err != nil {
		metrics.InfoRequests.WithLabelValues(errs.Code(err)).Inc()
		writeError(w, err)
		return
	}

	info, err := s.resolveInfo(r, canonical)
	if err != nil {
		metrics.InfoRequests.WithLabelValues(errs.Code(err)).Inc()
		writeError(w, err)
		return
	}

	menu, err := catalog.Build(info, s.policy)
	if err != nil {
		metrics.InfoRequests.WithLabelValues(errs.Code(err)).Inc()
		writeError(w, err)
		return
	}

	metrics.InfoRequests.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, infoResponse{Title: info.Title, Formats: menu})
}

// handleDownload streams the selected format to the client, either directly
// or by fetching separate tracks and remuxing them. Failures after the first
// body byte terminate the stream; the truncated container is the error
// signal the client sees.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With().Str("handler", "download").Logger()
	prog := newProgress(logger)

	canonical, err := resolve.Canonicalize(r.URL.Query().Get("url"))
	if err != nil {
		prog.fail()
		metrics.Downloads.WithLabelValues("none", errs.Code(err)).Inc()
		writeError(w, err)
		return
	}
	formatID, err := strconv.Atoi(r.URL.Query().Get("format"))
	if err != nil {
		prog.fail()
		err = fmt.Errorf("%w: format must be a numeric id", errs.ErrInvalidInput)
		metrics.Downloads.WithLabelValues("none", errs.Code(err)).Inc()
		writeError(w, err)
		return
	}

	info, err := s.resolveInfo(r, canonical)
	if err != nil {
		prog.fail()
		metrics.Downloads.WithLabelValues("none", errs.Code(err)).Inc()
		writeError(w, err)
		return
	}

	prog.advance(phasePlanning)
	p, err := s.planner.Decide(info, formatID)
	if err != nil {
		prog.fail()
		metrics.Downloads.WithLabelValues("none", errs.Code(err)).Inc()
		writeError(w, err)
		return
	}

	logger.Info().
		Str("plan", p.Kind.String()).
		Int("format_id", p.Target.ID).
		Str("title", info.Title).
		Msg("download planned")

	switch p.Kind {
	case plan.Direct:
		err = s.serveDirect(w, r, canonical, info, p, prog)
	default:
		err = s.serveMerge(w, r, canonical, info, p, prog)
	}
	if err != nil {
		prog.fail()
		metrics.Downloads.WithLabelValues(p.Kind.String(), errs.Code(err)).Inc()
		logger.Error().Err(err).Str("plan", p.Kind.String()).Msg("download failed")
		return
	}
	prog.advance(phaseDone)
	metrics.Downloads.WithLabelValues(p.Kind.String(), "ok").Inc()
}

// serveDirect forwards the selected track byte-for-byte.
func (s *Server) serveDirect(w http.ResponseWriter, r *http.Request, canonical string, info *media.Info, p plan.Plan, prog *progress) error {
	trackURL, err := s.resolver.TrackURL(r.Context(), canonical, p.Target.ID)
	if err != nil {
		writeError(w, err)
		return err
	}

	// Declared sizes are advisory; announcing one and delivering another
	// would make the server truncate or fail the stream.
	ext := p.Target.Container
	w.Header().Set("Content-Type", mimeext.ContentType(ext, p.Target.AudioOnly()))
	w.Header().Set("Content-Disposition", sanitize.ContentDisposition(info.Title, ext))

	prog.advance(phaseDirectStreaming)
	_, err = s.fetcher.Stream(r.Context(), trackURL, newFlushWriter(w))
	return err
}

// serveMerge fetches the video and audio tracks into a temp session, then
// remuxes them into one streamed container. Both tracks are fully fetched
// before the first response byte, so fetch errors still produce a clean
// JSON error.
func (s *Server) serveMerge(w http.ResponseWriter, r *http.Request, canonical string, info *media.Info, p plan.Plan, prog *progress) error {
	session, err := fetch.NewSession(s.cfg.Fetch.TempDir)
	if err != nil {
		writeError(w, err)
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("session cleanup failed")
		}
	}()

	// Merged output is always fragmented mp4: the video stream is copied
	// untouched and non-aac audio is transcoded, whatever the source
	// containers were.
	const outContainer = "mp4"
	videoPath := session.TrackPath("video", p.Target.Container)
	audioPath := session.TrackPath("audio", p.Audio.Container)

	prog.advance(phaseFetchingTracks)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		url, err := s.resolver.TrackURL(ctx, canonical, p.Target.ID)
		if err != nil {
			return err
		}
		_, err = s.fetcher.FetchTrack(ctx, url, videoPath)
		return err
	})
	g.Go(func() error {
		url, err := s.resolver.TrackURL(ctx, canonical, p.Audio.ID)
		if err != nil {
			return err
		}
		_, err = s.fetcher.FetchTrack(ctx, url, audioPath)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, err)
		return err
	}

	w.Header().Set("Content-Type", mimeext.ContentType(outContainer, false))
	w.Header().Set("Content-Disposition", sanitize.ContentDisposition(info.Title, outContainer))

	prog.advance(phaseMuxing)
	return s.muxer.Mux(r.Context(), remux.Job{
		VideoPath:  videoPath,
		AudioPath:  audioPath,
		AudioCodec: p.Audio.AudioCodec,
		Container:  outContainer,
	}, newFlushWriter(w))
}

// flushWriter pushes each chunk to the client immediately so playback can
// start before the transfer completes.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newFlushWriter(w http.ResponseWriter) flushWriter {
	f, _ := w.(http.Flusher)
	return flushWriter{w: w, f: f}
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if n > 0 && fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}
