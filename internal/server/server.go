// Package server is the HTTP gateway: it exposes the format menu, the
// download stream and liveness/metrics endpoints, delegating resolution,
// planning, fetching and remuxing to the wired collaborators.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ytget/ytgate/internal/cache"
	"github.com/ytget/ytgate/internal/config"
	"github.com/ytget/ytgate/internal/log"
	"github.com/ytget/ytgate/internal/media"
	"github.com/ytget/ytgate/internal/metrics"
	"github.com/ytget/ytgate/internal/plan"
	"github.com/ytget/ytgate/internal/remux"
)

// Resolver turns a source URL into media metadata and per-format track URLs.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*media.Info, error)
	TrackURL(ctx context.Context, sourceURL string, formatID int) (string, error)
}

// Fetcher transfers one track, either to a local file or straight to a writer.
type Fetcher interface {
	FetchTrack(ctx context.Context, url, dest string) (int64, error)
	Stream(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Muxer combines two local tracks into a single streamed container.
type Muxer interface {
	Mux(ctx context.Context, job remux.Job, w io.Writer) error
}

// Server holds the gateway's collaborators and configuration.
type Server struct {
	cfg      *config.Config
	resolver Resolver
	fetcher  Fetcher
	muxer    Muxer
	store    cache.Store
	planner  *plan.Planner
	policy   media.ContainerPolicy
	logger   zerolog.Logger
	started  time.Time
}

// New wires a Server from its collaborators.
func New(cfg *config.Config, resolver Resolver, fetcher Fetcher, muxer Muxer, store cache.Store) *Server {
	policy := cfg.Container.Policy()
	return &Server{
		cfg:      cfg,
		resolver: resolver,
		fetcher:  fetcher,
		muxer:    muxer,
		store:    store,
		planner:  plan.New(policy, plan.HighestAudioQuality),
		policy:   policy,
		logger:   log.WithComponent("server"),
		started:  time.Now(),
	}
}

// Router builds the chi router with the full middleware stack applied.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware(s.cfg.Server.AllowedOrigins))
	r.Use(requestLogger(s.logger))

	r.Get("/", s.handleRoot)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(g chi.Router) {
		if s.cfg.Server.RateLimit > 0 {
			g.Use(rateLimit(s.cfg.Server.RateLimit, s.cfg.Server.RateWindow))
		}
		g.Get("/info", s.handleInfo)
		g.Get("/download", s.handleDownload)
	})
	return r
}
