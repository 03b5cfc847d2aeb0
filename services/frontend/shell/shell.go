// Package shell owns the top stories view: it triggers the single fetch,
// tracks the loading, error and loaded states, and paints each frame to a
// Surface.
//
// A Shell renders the loading indicator as soon as it is mounted, then
// renders once more when the fetch settles. Nothing moves it back to
// Loading and nothing triggers a second fetch.
package shell

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"topstories/services/frontend/adapters"
	"topstories/services/frontend/models"
)

// ErrAlreadyMounted is returned by Mount on a shell that was mounted before.
var ErrAlreadyMounted = errors.New("shell already mounted")

// Fetcher is the one-shot data source behind the view.
type Fetcher interface {
	Fetch(ctx context.Context) adapters.Result
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context) adapters.Result

func (f FetcherFunc) Fetch(ctx context.Context) adapters.Result { return f(ctx) }

// Shell fetches the story list once per mount and repaints its Surface on
// every state change: a loading frame first, then the error or the list.
type Shell struct {
	fetcher Fetcher
	surface Surface
	logger  *slog.Logger

	mu        sync.Mutex
	stories   []models.Story
	err       error
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New builds an unmounted Shell. A nil logger falls back to slog.Default.
func New(fetcher Fetcher, surface Surface, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{
		fetcher: fetcher,
		surface: surface,
		logger:  logger.With("module", "shell"),
		stories: []models.Story{},
		done:    make(chan struct{}),
	}
}

// Mount paints the first frame and starts the fetch in the background.
// It returns once the first frame is painted.
func (s *Shell) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return ErrAlreadyMounted
	}
	s.mounted = true
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	frameErr := s.paintLocked()
	s.mu.Unlock()

	go s.run(fetchCtx)
	return frameErr
}

func (s *Shell) run(ctx context.Context) {
	defer close(s.done)
	res := s.fetcher.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted {
		s.logger.Debug("discarding fetch result after unmount")
		return
	}
	if err := res.Err(); err != nil {
		s.err = err
	} else {
		s.stories = res.Stories()
	}
	if err := s.paintLocked(); err != nil {
		s.logger.Error("paint failed", "error", err.Error())
	}
	s.logger.Info("view settled", "state", Derive(s.stories, s.err).String(), "stories", len(s.stories))
}

// Unmount cancels an in-flight fetch. A result arriving afterwards is
// dropped without painting.
func (s *Shell) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted {
		return
	}
	s.unmounted = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Done is closed once the fetch has settled or its result was dropped.
func (s *Shell) Done() <-chan struct{} { return s.done }

// State returns the current derived view state.
func (s *Shell) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Derive(s.stories, s.err)
}

// Stories returns a copy of the loaded stories.
func (s *Shell) Stories() []models.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Story(nil), s.stories...)
}

// Err returns the fetch error, if any.
func (s *Shell) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Shell) paintLocked() error {
	frame, err := Render(s.stories, s.err)
	if err != nil {
		return err
	}
	return s.surface.Paint(frame)
}
