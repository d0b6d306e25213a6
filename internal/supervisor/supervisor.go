// Package supervisor implements the development-only reload loop: it watches
// filesystem roots and restarts the listener when something underneath them
// changes. Exactly one listener is alive at any moment; the old socket is
// fully closed before a replacement is bound.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/avoronin/runway/internal/config"
	"github.com/avoronin/runway/internal/launcher"
)

const (
	defaultDebounce = 400 * time.Millisecond
	initialBackoff  = 250 * time.Millisecond
	maxBackoff      = 10 * time.Second
)

// LaunchFunc starts a fresh listener. The supervisor calls it only after the
// previous handle has been fully torn down.
type LaunchFunc func() (*launcher.Handle, error)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithDebounce overrides the change-coalescing window (primarily for tests).
func WithDebounce(d time.Duration) Option {
	return func(s *Supervisor) {
		s.debounce = d
	}
}

// Supervisor owns the active listener handle while reload mode is on. Its
// lifecycle is Idle (constructed) -> Watching -> Restarting -> Watching,
// with Stopped as the terminal state entered by Stop.
type Supervisor struct {
	cfg      config.Config
	launch   LaunchFunc
	logger   *zap.Logger
	debounce time.Duration

	handle  *launcher.Handle
	watcher *fsnotify.Watcher

	stop    chan struct{}
	stopped chan struct{}
}

// New wraps an already-started handle. Run must be called to begin watching.
func New(cfg config.Config, handle *launcher.Handle, launch LaunchFunc, logger *zap.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		launch:   launch,
		logger:   logger,
		debounce: defaultDebounce,
		handle:   handle,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts the watch loop. Watcher failures are non-fatal: the service
// keeps serving without reload rather than aborting startup.
func (s *Supervisor) Run() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("file watcher unavailable, reload disabled", zap.Error(err))
		go s.idle()
		return
	}

	watching := 0
	for _, path := range s.cfg.WatchPaths {
		if err := watcher.Add(path); err != nil {
			s.logger.Warn("watch path skipped", zap.String("path", path), zap.Error(err))
			continue
		}
		watching++
	}
	if watching == 0 {
		s.logger.Warn("no watchable paths, reload disabled", zap.Strings("paths", s.cfg.WatchPaths))
		_ = watcher.Close()
		go s.idle()
		return
	}

	s.watcher = watcher
	s.logger.Info("watching for changes",
		zap.Strings("paths", s.cfg.WatchPaths),
		zap.Duration("debounce", s.debounce),
	)
	go s.loop()
}

// Stop cancels the watch loop and tears down the active listener. It blocks
// until the loop has exited or ctx expires.
func (s *Supervisor) Stop(ctx context.Context) error {
	close(s.stop)
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// idle keeps ownership of the handle when watching is unavailable, so Stop
// still tears the listener down.
func (s *Supervisor) idle() {
	defer close(s.stopped)
	<-s.stop
	s.teardown()
}

func (s *Supervisor) loop() {
	defer close(s.stopped)
	defer func() {
		_ = s.watcher.Close()
	}()

	// Reassigned on every qualifying event, so a burst of changes pushes the
	// deadline out and collapses into a single restart.
	var pending <-chan time.Time

	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				s.teardown()
				return
			}
			if !qualifies(ev) {
				continue
			}
			s.logger.Debug("change detected", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			pending = time.After(s.debounce)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				s.teardown()
				return
			}
			s.logger.Warn("watch error", zap.Error(err))

		case <-pending:
			pending = nil
			if !s.restart() {
				return
			}

		case <-s.stop:
			s.teardown()
			return
		}
	}
}

// qualifies filters watcher noise down to content-affecting operations.
func qualifies(ev fsnotify.Event) bool {
	return ev.Op.Has(fsnotify.Write) ||
		ev.Op.Has(fsnotify.Create) ||
		ev.Op.Has(fsnotify.Remove) ||
		ev.Op.Has(fsnotify.Rename)
}

// restart tears down the current handle and launches a replacement. The old
// socket is fully closed before the new bind, so the two never race for the
// port. Launch failures retry with doubling backoff until Stop. Returns
// false when the loop should exit.
func (s *Supervisor) restart() bool {
	s.logger.Info("change burst settled, restarting listener")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
	err := s.handle.Shutdown(ctx)
	cancel()
	if err != nil {
		s.logger.Warn("drain incomplete during restart", zap.Error(err))
	}
	s.handle = nil

	backoff := initialBackoff
	for {
		h, err := s.launch()
		if err == nil {
			s.handle = h
			s.logger.Info("listener restarted")
			return true
		}

		s.logger.Warn("restart failed, retrying",
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-time.After(backoff):
		case <-s.stop:
			return false
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *Supervisor) teardown() {
	if s.handle == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
	defer cancel()
	if err := s.handle.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("listener teardown failed", zap.Error(err))
	}
	s.handle = nil
}
