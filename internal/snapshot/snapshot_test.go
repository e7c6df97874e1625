package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xyla-io/raspador/internal/browser/browsertest"
	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/flightlog"
)

func newFake(t *testing.T) *browsertest.Browser {
	t.Helper()
	b := browsertest.New(map[string]browsertest.Page{"https://x.example": {Source: "<p>hello</p>"}})
	require.NoError(t, b.Navigate(context.Background(), "https://x.example"))
	return b
}

func TestCapture(t *testing.T) {
	dir := t.TempDir()
	b := newFake(t)

	files, err := Capture(context.Background(), b, dir, "frame")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "image", "frame.png"), files.Image)

	src, err := os.ReadFile(files.HTML)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(src))

	b.PNG = nil
	files, err = Capture(context.Background(), b, dir, "blank")
	require.NoError(t, err)
	assert.Empty(t, files.Image)
}

func TestMonitorWritesFramesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	m := NewMonitor(dir)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.Snapshot(nil, nil)
	m.Snapshot(&flight.Pilot{Name: "no browser"}, nil)
	m.Snapshot(&flight.Pilot{Browser: newFake(t)}, flightlog.New())
	m.Close()
	m.Close()
	m.Snapshot(&flight.Pilot{Browser: newFake(t)}, nil)

	_, err := os.Stat(filepath.Join(dir, "html", "2024-01-02_03_04_05.html"))
	assert.NoError(t, err)
}
