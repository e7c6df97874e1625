package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProvider("raspador", "test", &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "flight.attempt")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "flight.attempt"`)
	assert.Contains(t, buf.String(), "raspador")
}

func TestInitWithoutPathIsNoop(t *testing.T) {
	require.NoError(t, Init("raspador", "test", ""))
	assert.NoError(t, Shutdown(context.Background()))
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, Init("raspador", "test", path))
	require.NoError(t, Shutdown(context.Background()))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
