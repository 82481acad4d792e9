package cliutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		in    string
		level slog.Level
		err   bool
	}{
		{in: "", level: slog.LevelInfo},
		{in: "info", level: slog.LevelInfo},
		{in: "DEBUG", level: slog.LevelDebug},
		{in: "warn", level: slog.LevelWarn},
		{in: "error", level: slog.LevelError},
		{in: "loud", err: true},
	}

	for _, f := range fixtures {
		l, err := parseLevel(f.in)
		if f.err {
			assert.Error(err, f.in)
			continue
		}
		assert.NoError(err, f.in)
		assert.Equal(f.level, l, f.in)
	}
}

func TestSetupSlogFile(t *testing.T) {
	assert := assert.New(t)
	defer slog.SetDefault(slog.Default())

	p := filepath.Join(t.TempDir(), "hushd.log")
	logger, err := SetupSlog(LogOptions{LogLevel: "info", LogFormat: "json", LogPath: p})
	assert.NoError(err)
	logger.Info("hello", "user", "u1")

	raw, err := os.ReadFile(p)
	assert.NoError(err)
	assert.Contains(string(raw), `"msg":"hello"`)
	assert.Contains(string(raw), `"user":"u1"`)

	_, err = SetupSlog(LogOptions{LogLevel: "info", LogFormat: "yaml", LogPath: p})
	assert.Error(err)
}
