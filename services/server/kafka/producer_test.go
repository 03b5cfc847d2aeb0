package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"topstories/services/frontend/adapters"
	"topstories/services/frontend/models"
	"topstories/services/frontend/shell"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { w.closed = true; return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProducer(w *recordingWriter) *Producer {
	return &Producer{writer: w, logger: quietLogger()}
}

func TestNewProducerValidates(t *testing.T) {
	if _, err := NewProducer(nil, "t", quietLogger()); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewProducer([]string{"localhost:9092"}, "", quietLogger()); err == nil {
		t.Fatalf("expected error without topic")
	}
	p, err := NewProducer([]string{"localhost:9092"}, "t", quietLogger())
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	_ = p.Close()
}

func TestPublishStoriesKeysByURI(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)
	stories := []models.Story{
		{URI: "nyt://a", URL: "http://x", Title: "Hello"},
		{URI: "nyt://b", URL: "http://y", Title: "World"},
	}
	if err := p.PublishStories(context.Background(), stories); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}
	for i, msg := range w.msgs {
		if string(msg.Key) != stories[i].URI {
			t.Fatalf("message %d key = %q", i, msg.Key)
		}
		var got models.Story
		if err := json.Unmarshal(msg.Value, &got); err != nil {
			t.Fatalf("decode message %d: %v", i, err)
		}
		if got != stories[i] {
			t.Fatalf("message %d = %+v, want %+v", i, got, stories[i])
		}
	}
}

func TestPublishNothingForEmptyList(t *testing.T) {
	w := &recordingWriter{err: errors.New("must not be called")}
	if err := newTestProducer(w).PublishStories(context.Background(), nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestPublishingFetcher(t *testing.T) {
	stories := []models.Story{{URI: "a", URL: "http://x", Title: "Hello"}}

	t.Run("success is published", func(t *testing.T) {
		w := &recordingWriter{}
		f := Publishing(fetcherFunc(func(ctx context.Context) adapters.Result {
			return adapters.Success(stories)
		}), newTestProducer(w), quietLogger())
		res := f.Fetch(context.Background())
		if !res.OK() || len(res.Stories()) != 1 {
			t.Fatalf("unexpected result %+v", res)
		}
		f.Wait()
		if len(w.msgs) != 1 {
			t.Fatalf("expected 1 published message, got %d", len(w.msgs))
		}
	})

	t.Run("failure is not published", func(t *testing.T) {
		w := &recordingWriter{}
		f := Publishing(fetcherFunc(func(ctx context.Context) adapters.Result {
			return adapters.Failure(errors.New("status code error: 500"))
		}), newTestProducer(w), quietLogger())
		if res := f.Fetch(context.Background()); res.OK() {
			t.Fatalf("expected failure to pass through")
		}
		f.Wait()
		if len(w.msgs) != 0 {
			t.Fatalf("failure must not publish, got %d messages", len(w.msgs))
		}
	})

	t.Run("publish error keeps success", func(t *testing.T) {
		w := &recordingWriter{err: errors.New("broker down")}
		f := Publishing(fetcherFunc(func(ctx context.Context) adapters.Result {
			return adapters.Success(stories)
		}), newTestProducer(w), quietLogger())
		if res := f.Fetch(context.Background()); !res.OK() {
			t.Fatalf("publish failure leaked into result: %v", res.Err())
		}
		f.Wait()
	})
}

// blockingWriter holds every write until release is closed.
type blockingWriter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *blockingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.once.Do(func() { close(w.started) })
	select {
	case <-w.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *blockingWriter) Close() error { return nil }

func TestStalledBrokerDoesNotDelayShell(t *testing.T) {
	w := &blockingWriter{started: make(chan struct{}), release: make(chan struct{})}
	producer := &Producer{writer: w, logger: quietLogger()}
	f := Publishing(fetcherFunc(func(ctx context.Context) adapters.Result {
		return adapters.Success([]models.Story{{URI: "a", URL: "http://x", Title: "Hello"}})
	}), producer, quietLogger())

	surface := &shell.MemorySurface{}
	view := shell.New(f, surface, quietLogger())
	if err := view.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}

	select {
	case <-view.Done():
	case <-time.After(2 * time.Second):
		close(w.release)
		t.Fatalf("shell waited on the broker before settling")
	}
	if n := len(surface.Frames()); n != 2 {
		t.Fatalf("expected loaded frame painted, got %d frames", n)
	}
	if view.State() != shell.Loaded {
		t.Fatalf("state = %s, want loaded", view.State())
	}

	<-w.started
	close(w.release)
	f.Wait()
}

func TestBackgroundPublishSurvivesCanceledFetchContext(t *testing.T) {
	w := &recordingWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	f := Publishing(fetcherFunc(func(ctx context.Context) adapters.Result {
		return adapters.Success([]models.Story{{URI: "a", URL: "http://x", Title: "Hello"}})
	}), newTestProducer(w), quietLogger())

	res := f.Fetch(ctx)
	cancel()
	f.Wait()
	if !res.OK() || len(w.msgs) != 1 {
		t.Fatalf("expected one published message after cancel, got %d", len(w.msgs))
	}
}

type fetcherFunc func(ctx context.Context) adapters.Result

func (f fetcherFunc) Fetch(ctx context.Context) adapters.Result { return f(ctx) }
