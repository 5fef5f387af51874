package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConsoleLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Console: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("fetched", "domain", "example.com")
	require.NoError(t, l.Close())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "fetched")
	assert.Contains(t, buf.String(), "domain=example.com")
}

func TestNew_Verbose(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Console: &buf, Verbose: true})
	require.NoError(t, err)

	l.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_FileSink(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "sqlihunter.log")

	l, err := New(Options{Console: &buf, File: path, MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)

	l.Warn("archive unavailable", "domain", "example.com")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "archive unavailable")
	assert.Contains(t, buf.String(), "archive unavailable")
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("nothing") })
}
