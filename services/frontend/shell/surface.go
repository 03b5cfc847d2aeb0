package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Surface receives every rendered frame.
type Surface interface {
	Paint(frame []byte) error
}

// FileSurface writes frames to a file inside the asset bundle, replacing
// it atomically so the static host never serves a half-written page.
type FileSurface struct {
	Path string
}

// NewFileSurface targets index.html under dir.
func NewFileSurface(dir string) *FileSurface {
	return &FileSurface{Path: filepath.Join(dir, "index.html")}
}

func (f *FileSurface) Paint(frame []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.html")
	if err != nil {
		return fmt.Errorf("create temp frame: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(frame); err != nil {
		tmp.Close()
		return fmt.Errorf("write frame: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close frame: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("publish frame: %w", err)
	}
	return nil
}

// MemorySurface keeps every frame in memory.
type MemorySurface struct {
	mu     sync.Mutex
	frames [][]byte
}

func (m *MemorySurface) Paint(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, append([]byte(nil), frame...))
	return nil
}

// Frames returns a copy of the painted frames, oldest first.
func (m *MemorySurface) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	copy(out, m.frames)
	return out
}

// Last returns the most recent frame, nil when nothing was painted.
func (m *MemorySurface) Last() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}
