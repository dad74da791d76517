package recovery

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/models"
)

// ErrMalformedIndex means the index file does not hold exactly two
// non-negative integers separated by a newline.
var ErrMalformedIndex = errors.New("index file should contain two numbers separated by '\\n'")

// ReadIndex parses the recovery index file.
func ReadIndex(path string) (models.IndexRange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.IndexRange{}, err
	}

	parts := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(parts) != 2 {
		return models.IndexRange{}, ErrMalformedIndex
	}
	var nums [2]int
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return models.IndexRange{}, ErrMalformedIndex
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return models.IndexRange{}, ErrMalformedIndex
		}
		nums[i] = n
	}
	return models.IndexRange{Lowest: nums[0], Highest: nums[1]}, nil
}

// CommandRunner runs a local program with its combined output sent to out.
type CommandRunner func(ctx context.Context, out io.Writer, name string, args ...string) error

func execRunner(ctx context.Context, out io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

// Manager restores files deleted by a destructive run. Every failure is
// logged and swallowed so the benchmark sequence can continue.
type Manager struct {
	IndexFile string
	Script    string
	Output    string

	run CommandRunner
}

func NewManager(indexFile, script, output string) *Manager {
	return &Manager{IndexFile: indexFile, Script: script, Output: output, run: execRunner}
}

// Recover runs the recovery script over the persisted index range. It
// reports whether the script was invoked. The index file is removed once the
// script succeeds, so a range is recovered only once.
func (m *Manager) Recover(ctx context.Context) bool {
	logger := log.WithField("index_file", m.IndexFile)

	index, err := ReadIndex(m.IndexFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("index file not found, skipping recovery")
		return false
	case err != nil:
		logger.WithError(err).Warn("cannot read index file, skipping recovery")
		return false
	}

	out, err := os.Create(m.Output)
	if err != nil {
		logger.WithError(err).Warn("cannot create recovery log, skipping recovery")
		return false
	}
	defer out.Close()

	if err := os.Chmod(m.Script, 0755); err != nil {
		logger.WithError(err).Warn("cannot make recovery script executable")
	}
	if err := m.run(ctx, out, m.Script, "recover"); err != nil {
		// The index stays so the same range can be recovered again.
		logger.WithError(err).Warn("recovery script failed")
	} else if err := os.Remove(m.IndexFile); err != nil {
		logger.WithError(err).Warn("cannot remove consumed index file")
	}

	logger.WithFields(log.Fields{
		"lowest":  index.Lowest,
		"highest": index.Highest,
		"log":     m.Output,
	}).Infof("recovered files with indices %d to %d", index.Lowest, index.Highest)
	return true
}
