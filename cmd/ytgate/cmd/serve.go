package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ytget/ytgate/internal/cache"
	"github.com/ytget/ytgate/internal/config"
	"github.com/ytget/ytgate/internal/fetch"
	"github.com/ytget/ytgate/internal/log"
	"github.com/ytget/ytgate/internal/remux"
	"github.com/ytget/ytgate/internal/resolve"
	"github.com/ytget/ytgate/internal/server"
	"github.com/ytget/ytgate/internal/version"
)

// orphanAge is how old a leftover temp session must be before startup
// cleanup removes it, so a concurrent instance's live sessions survive.
const orphanAge = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ytgate HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "listen address (host:port)")
	serveCmd.Flags().String("cache-backend", "", "info cache backend (memory, redis)")

	mustBindPFlag("server.listen", serveCmd, "listen")
	mustBindPFlag("cache.backend", serveCmd, "cache-backend")
}

func mustBindPFlag(key string, cmd *cobra.Command, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %q to key %q: %v", flag, key, err))
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger := log.WithComponent("serve")
	logger.Info().Str("version", version.Version).Str("listen", cfg.Server.Listen).Msg("starting")

	// Sessions abandoned by a previous crash would otherwise accumulate.
	if removed, err := fetch.CleanupOrphans(cfg.Fetch.TempDir, orphanAge); err != nil {
		logger.Warn().Err(err).Msg("orphan temp cleanup failed")
	} else if removed > 0 {
		logger.Info().Int("removed", removed).Msg("cleaned orphan temp sessions")
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("cache close failed")
		}
	}()

	resolver := resolve.New(resolve.Config{
		Timeout:     cfg.Resolve.Timeout,
		MaxAttempts: cfg.Resolve.MaxAttempts,
	})
	fetcher := fetch.New(nil, fetch.Config{
		Timeout:      cfg.Fetch.Timeout,
		RateLimitBps: cfg.Fetch.RateLimitBps,
	})
	muxer := remux.New(remux.Config{
		FFmpegPath:   cfg.Remux.FFmpegPath,
		AudioBitrate: cfg.Remux.AudioBitrate,
	})

	gw := server.New(cfg, resolver, fetcher, muxer, store)
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           gw.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %v", err)
	case <-ctx.Done():
	}

	logger.Info().Dur("grace", cfg.Server.ShutdownGrace).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %v", err)
	}
	return nil
}

// newStore selects the configured cache backend.
func newStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %v", cfg.Cache.RedisAddr, err)
		}
		return cache.NewRedis(client, cfg.Cache.TTL), nil
	default:
		return cache.NewMemory(cfg.Cache.TTL), nil
	}
}
