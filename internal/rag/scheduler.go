package rag

import (
	"context"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/kofiasare/sankofa/internal/log"
)

// Scheduler periodically re-indexes a content directory. A file lock in
// the indexed directory keeps concurrent processes from indexing the
// same tree at once; a run that cannot take the lock is skipped, not
// queued.
type Scheduler struct {
	indexer  *Indexer
	dir      string
	interval time.Duration
	lockPath string
	logger   log.Logger
}

// NewScheduler creates an index scheduler for dir.
func NewScheduler(indexer *Indexer, dir string, interval time.Duration, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Scheduler{
		indexer:  indexer,
		dir:      dir,
		interval: interval,
		lockPath: filepath.Join(dir, ".sankofa-index.lock"),
		logger:   logger,
	}
}

// Run indexes once immediately, then on every tick, blocking until ctx
// is canceled. Callers must track the goroutine with a WaitGroup.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("index scheduler started", "dir", s.dir, "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("index scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes a single locked index pass over the directory.
func (s *Scheduler) runOnce(ctx context.Context) {
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		s.logger.Warn("index lock failed", "path", s.lockPath, "error", err)
		return
	}
	if !locked {
		s.logger.Debug("index run skipped, another process holds the lock")
		return
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("index unlock failed", "error", err)
		}
	}()

	result, err := s.indexer.AddDirectory(ctx, s.dir)
	if err != nil {
		s.logger.Error("scheduled index run failed", "dir", s.dir, "error", err)
		return
	}
	s.logger.Info("scheduled index run complete",
		"files_added", result.FilesAdded,
		"files_skipped", result.FilesSkipped,
		"files_failed", result.FilesFailed,
		"chunks_added", result.ChunksAdded,
		"duration", result.Duration)
}
