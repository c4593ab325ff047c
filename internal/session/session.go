// Package session caches the processed form of the survey export so that
// every page render does not re-read and re-aggregate the file.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dev-omotenashi/ai-usage-survey/internal/aggregate"
	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
)

// ErrNoDataset is returned when the export file does not exist.
var ErrNoDataset = errors.New("survey export not found")

// Snapshot is one loaded and aggregated version of the export.
type Snapshot struct {
	Dataset   *ingest.Dataset
	Processed *aggregate.Processed
	Summary   aggregate.Summary
	ModTime   time.Time
	Size      int64
	LoadedAt  time.Time
}

// Session holds the current snapshot of one export path. It is safe for
// concurrent use; concurrent reloads of the same file are coalesced.
type Session struct {
	path   string
	months []string
	logger *zap.Logger

	mu      sync.RWMutex
	current *Snapshot
	gen     uint64 // bumped by Invalidate

	sf    singleflight.Group
	loads atomic.Int64

	afterLoad func() // test hook, runs between parse and store
}

// New creates a session for the export at path. months are the designated
// comparison months passed to aggregate.Build.
func New(path string, months []string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		path:   path,
		months: append([]string(nil), months...),
		logger: logger,
	}
}

// Path returns the export path.
func (s *Session) Path() string { return s.path }

// Months returns the designated comparison months.
func (s *Session) Months() []string { return append([]string(nil), s.months...) }

// Loads returns how many times the export has been read.
func (s *Session) Loads() int { return int(s.loads.Load()) }

// Get returns the current snapshot, reloading when the file's modification
// time or size changed or after Invalidate.
func (s *Session) Get(ctx context.Context) (*Snapshot, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDataset, s.path)
		}
		return nil, fmt.Errorf("checking survey export: %w", err)
	}

	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur != nil && cur.ModTime.Equal(info.ModTime()) && cur.Size == info.Size() {
		return cur, nil
	}

	ch := s.sf.DoChan(s.path, func() (any, error) {
		return s.reload()
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// reload reads and aggregates the export. The snapshot is returned to the
// waiting callers but only cached when no Invalidate happened meanwhile.
func (s *Session) reload() (*Snapshot, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDataset, s.path)
		}
		return nil, fmt.Errorf("checking survey export: %w", err)
	}

	start := time.Now()
	ds, err := ingest.Load(s.path)
	s.loads.Add(1)
	if err != nil {
		s.logger.Warn("loading survey export failed", zap.String("path", s.path), zap.Error(err))
		return nil, err
	}

	snap := &Snapshot{
		Dataset:   ds,
		Processed: aggregate.Build(ds, s.months),
		Summary:   aggregate.Summarize(ds),
		ModTime:   info.ModTime(),
		Size:      info.Size(),
		LoadedAt:  time.Now(),
	}

	if s.afterLoad != nil {
		s.afterLoad()
	}

	s.mu.Lock()
	stale := s.gen != gen
	if !stale {
		s.current = snap
	}
	s.mu.Unlock()
	if stale {
		s.logger.Debug("discarding snapshot loaded before invalidate", zap.String("path", s.path))
		return snap, nil
	}

	s.logger.Info("loaded survey export",
		zap.String("path", s.path),
		zap.Int("responses", ds.Len()),
		zap.Duration("took", time.Since(start)))
	return snap, nil
}

// Invalidate drops the cached snapshot so the next Get reloads. A reload
// already in flight still answers its callers but is not cached, and later
// Get calls do not join it.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.current = nil
	s.gen++
	s.mu.Unlock()
	s.sf.Forget(s.path)
	s.logger.Debug("session invalidated", zap.String("path", s.path))
}

// Cached returns the current snapshot without touching the file, or nil.
func (s *Session) Cached() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
