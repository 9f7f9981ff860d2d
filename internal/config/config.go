// Package config holds the typed service configuration populated from viper
// (config file, YTGATE_* environment variables and command flags).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/ytget/ytgate/internal/media"
)

// Config is the full service configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Log       Log       `mapstructure:"log"`
	Cache     Cache     `mapstructure:"cache"`
	Resolve   Resolve   `mapstructure:"resolve"`
	Fetch     Fetch     `mapstructure:"fetch"`
	Remux     Remux     `mapstructure:"remux"`
	Container Container `mapstructure:"containers"`
}

// Server configures the HTTP listener and gateway policies.
type Server struct {
	Listen         string        `mapstructure:"listen"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RateLimit      int           `mapstructure:"rate_limit"`
	RateWindow     time.Duration `mapstructure:"rate_window"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

// Log configures logging output.
type Log struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// Cache configures the /info response cache.
type Cache struct {
	Backend   string        `mapstructure:"backend"` // "memory" or "redis"
	TTL       time.Duration `mapstructure:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
}

// Resolve configures the metadata extraction boundary.
type Resolve struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// Fetch configures track downloads.
type Fetch struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	TempDir      string        `mapstructure:"temp_dir"`
	RateLimitBps int64         `mapstructure:"rate_limit_bps"` // 0 disables
}

// Remux configures the ffmpeg subprocess.
type Remux struct {
	FFmpegPath   string `mapstructure:"ffmpeg_path"`
	AudioBitrate string `mapstructure:"audio_bitrate"`
}

// Container lists the accepted container names per concern.
type Container struct {
	Video  []string `mapstructure:"video"`
	Audio  []string `mapstructure:"audio"`
	Direct []string `mapstructure:"direct"`
}

// Policy converts the configured container lists into the selection policy
// consumed by the catalog builder and transfer planner.
func (c Container) Policy() media.ContainerPolicy {
	p := media.DefaultContainerPolicy()
	if len(c.Video) > 0 {
		p.Video = media.NewContainerSet(c.Video...)
	}
	if len(c.Audio) > 0 {
		p.Audio = media.NewContainerSet(c.Audio...)
	}
	if len(c.Direct) > 0 {
		p.Direct = media.NewContainerSet(c.Direct...)
	}
	return p
}

// SetDefaults registers default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.rate_window", time.Minute)
	v.SetDefault("server.shutdown_grace", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("resolve.timeout", 30*time.Second)
	v.SetDefault("resolve.max_attempts", 3)

	v.SetDefault("fetch.timeout", 10*time.Minute)
	v.SetDefault("fetch.temp_dir", os.TempDir())
	v.SetDefault("fetch.rate_limit_bps", 0)

	v.SetDefault("remux.ffmpeg_path", "ffmpeg")
	v.SetDefault("remux.audio_bitrate", "192k")

	v.SetDefault("containers.video", []string{"mp4", "webm"})
	v.SetDefault("containers.audio", []string{"m4a", "mp4", "webm"})
	v.SetDefault("containers.direct", []string{"mp4", "webm", "m4a"})
}

// Load unmarshals the viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Resolve.MaxAttempts < 1 {
		return fmt.Errorf("resolve.max_attempts must be at least 1")
	}
	if c.Resolve.Timeout <= 0 || c.Fetch.Timeout <= 0 {
		return fmt.Errorf("resolve.timeout and fetch.timeout must be positive")
	}
	if c.Remux.FFmpegPath == "" {
		return fmt.Errorf("remux.ffmpeg_path must not be empty")
	}
	return nil
}
