// Package scratch manages short-lived files handed to the OS share sheet.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Subdir is the directory under the cache root that holds share files.
const Subdir = "temp_share"

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock replaces the wall clock used to schedule removals.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// Store writes files under <root>/temp_share and removes them after a grace
// delay. It is safe for concurrent use; every Task only removes its own files.
type Store struct {
	dir    string
	clock  clock.Clock
	logger *zap.Logger

	mu      sync.Mutex
	pending map[*Task]struct{}
}

// New creates the scratch directory under root.
func New(root string, opts ...Option) (*Store, error) {
	dir := filepath.Join(root, Subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	s := &Store{
		dir:     dir,
		clock:   clock.New(),
		logger:  zap.NewNop(),
		pending: make(map[*Task]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// Write stores data under name and returns its path. An existing file is
// never overwritten.
func (s *Store) Write(name string, data []byte) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid scratch file name %q", name)
	}
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close scratch file: %w", err)
	}
	return path, nil
}

// Task is a scheduled removal of a set of scratch files.
type Task struct {
	store *Store
	paths []string
	timer *clock.Timer
	once  sync.Once
	done  chan struct{}
}

// Cancel stops the removal if it has not started. It reports whether the
// files were left in place.
func (t *Task) Cancel() bool {
	if !t.timer.Stop() {
		return false
	}
	t.store.forget(t)
	t.once.Do(func() { close(t.done) })
	return true
}

// Done is closed once the task has run or was cancelled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) Paths() []string {
	return t.paths
}

func (t *Task) run() {
	t.once.Do(func() {
		t.store.forget(t)
		t.store.remove(t.paths)
		close(t.done)
	})
}

// ScheduleRemoval removes paths after delay. Removal failures are logged.
func (s *Store) ScheduleRemoval(paths []string, delay time.Duration) *Task {
	t := &Task{
		store: s,
		paths: append([]string(nil), paths...),
		done:  make(chan struct{}),
	}
	s.mu.Lock()
	s.pending[t] = struct{}{}
	s.mu.Unlock()

	t.timer = s.clock.AfterFunc(delay, t.run)
	s.logger.Debug("scheduled scratch cleanup",
		zap.Int("files", len(paths)),
		zap.Duration("delay", delay))
	return t
}

// Pending returns the number of removals not yet run.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush runs every pending removal now.
func (s *Store) Flush() {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.pending))
	for t := range s.pending {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.timer.Stop()
		t.run()
	}
}

func (s *Store) forget(t *Task) {
	s.mu.Lock()
	delete(s.pending, t)
	s.mu.Unlock()
}

func (s *Store) remove(paths []string) {
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			s.logger.Warn("failed to clean up scratch file", zap.String("path", p), zap.Error(err))
			continue
		}
		removed++
	}
	s.logger.Debug("cleaned up scratch files", zap.Int("removed", removed))
}
