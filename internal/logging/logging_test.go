package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONAtLevel(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "chat.log")

	log, err := New("warn", path)
	req.NoError(err)

	log.Info("hidden")
	log.Warn("shown", zap.String("sender", "alice"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	req.NoError(err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	req.Len(lines, 1)

	var record map[string]any
	req.NoError(json.Unmarshal([]byte(lines[0]), &record))
	req.Equal("warn", record["level"])
	req.Equal("shown", record["msg"])
	req.Equal("alice", record["sender"])
	req.Contains(record["ts"], "T")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", "stderr")
	require.ErrorContains(t, err, `invalid log level "loud"`)
}
