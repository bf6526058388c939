// internal/report/sink_test.go
package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekly_report.txt")
	sink := NewFileSink(path)

	require.NoError(t, sink.Append("first"))
	require.NoError(t, sink.Append("second"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Equal(t, []string{"first", "second"}, lines)
}

func TestFileSinkCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.txt")
	sink := NewFileSink(path)

	require.NoError(t, sink.Append("line"))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
