package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	closeFn, err := Configure(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.WithField("combination", "rms=yes optimization=no").Info("run started")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run started")
	assert.Contains(t, string(data), `combination="rms=yes optimization=no"`)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestConfigure_BadPath(t *testing.T) {
	_, err := Configure(filepath.Join(t.TempDir(), "missing", "run.log"), false)
	assert.Error(t, err)
}
