// Package snapshot saves what the pilot's browser shows: a screenshot and
// the page source, named after the latest flight-log position.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xyla-io/raspador/internal/browser"
	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/flightlog"
	"github.com/xyla-io/raspador/internal/logger"
)

// Files are the paths a capture wrote. Image is empty when the page could
// not be captured.
type Files struct {
	Image string
	HTML  string
}

// Capture writes <outputDir>/image/<name>.png and <outputDir>/html/<name>.html.
func Capture(ctx context.Context, b browser.Browser, outputDir, name string) (Files, error) {
	files := Files{
		Image: filepath.Join(outputDir, "image", name+".png"),
		HTML:  filepath.Join(outputDir, "html", name+".html"),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		png, err := b.Screenshot(gctx)
		if err != nil {
			return fmt.Errorf("screenshot: %w", err)
		}
		if png == nil {
			files.Image = ""
			return nil
		}
		return writeFile(files.Image, png)
	})
	g.Go(func() error {
		src, err := b.CurrentSource(gctx)
		if err != nil {
			return fmt.Errorf("page source: %w", err)
		}
		return writeFile(files.HTML, []byte(src))
	})
	if err := g.Wait(); err != nil {
		return Files{}, err
	}
	return files, nil
}

// SaveSource writes only the page source to <outputDir>/html/<name>.html.
func SaveSource(ctx context.Context, b browser.Browser, outputDir, name string) (string, error) {
	src, err := b.CurrentSource(ctx)
	if err != nil {
		return "", fmt.Errorf("page source: %w", err)
	}
	path := filepath.Join(outputDir, "html", name+".html")
	return path, writeFile(path, []byte(src))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type frame struct {
	browser browser.Browser
	name    string
}

// Monitor captures a frame before every attempt without holding up the
// flight: frames arriving while one is being written are dropped.
type Monitor struct {
	OutputDir string
	Timeout   time.Duration

	frames chan frame
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	now    func() time.Time
}

func NewMonitor(outputDir string) *Monitor {
	m := &Monitor{
		OutputDir: outputDir,
		Timeout:   10 * time.Second,
		frames:    make(chan frame, 1),
		now:       time.Now,
	}
	m.wg.Add(1)
	go m.run()
	return m
}

func (m *Monitor) Snapshot(pilot *flight.Pilot, log *flightlog.Log) {
	if pilot == nil || pilot.Browser == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	f := frame{browser: pilot.Browser, name: flightlog.FrameFileName(log, m.now())}
	select {
	case m.frames <- f:
	default:
		logger.Log.Debugf("[Monitor] Busy, dropped frame %s", f.name)
	}
}

// Close waits for the pending frame to be written.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.frames)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Monitor) run() {
	defer m.wg.Done()
	for f := range m.frames {
		ctx, cancel := context.WithTimeout(context.Background(), m.Timeout)
		if _, err := Capture(ctx, f.browser, m.OutputDir, f.name); err != nil {
			logger.Log.Warnf("[Monitor] Frame %s failed: %v", f.name, err)
		}
		cancel()
	}
}
