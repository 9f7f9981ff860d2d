package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/ytgate/internal/log"
)

// sessionPrefix namespaces session directories inside the shared temp dir so
// concurrent requests never collide and orphans are recognizable.
const sessionPrefix = "ytgate-"

// Session owns the temporary directory holding the fetched elementary tracks
// of one download request. It is the single cleanup point for every exit
// path: success, partial fetch failure, remux failure and client disconnect.
type Session struct {
	dir string
}

// NewSession creates a uniquely-named session directory under baseDir.
func NewSession(baseDir string) (*Session, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(baseDir, sessionPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Session{dir: dir}, nil
}

// TrackPath returns the path for one elementary track file inside the
// session ("video.mp4", "audio.webm").
func (s *Session) TrackPath(kind, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return filepath.Join(s.dir, kind+"."+ext)
}

// Close removes the session directory and everything in it. Safe to call
// multiple times; meant to be deferred right after NewSession.
func (s *Session) Close() error {
	if s == nil || s.dir == "" {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir = ""
	return err
}

// CleanupOrphans removes session directories left behind by a previous run
// (crash or kill). Only directories older than olderThan are touched, so
// sessions of concurrently running requests survive a restart race.
func CleanupOrphans(baseDir string, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return 0, err
	}
	logger := log.WithComponent("fetch")
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), sessionPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(baseDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn().Str("dir", path).Err(err).Msg("orphan cleanup failed")
			continue
		}
		removed++
	}
	return removed, nil
}
