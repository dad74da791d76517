package window

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/models"
)

const (
	// TimestampLayout matches "Jan 1, 2024 10:00:00 AM UTC".
	TimestampLayout = "Jan 2, 2006 3:04:05 PM UTC"

	timestampStart = "@"
	timestampEnd   = "UTC"
	opsMarker      = "performed"
)

var (
	// ErrRunFailed means no run-end timestamp was found: the load generator
	// did not finish cleanly.
	ErrRunFailed = errors.New("failures encountered during the run, please check the logs")

	// ErrNoOperations means no operation count was reported.
	ErrNoOperations = errors.New("no operation count found in run output")
)

// ShortRunError rejects runs too short to produce usable telemetry.
type ShortRunError struct {
	Elapsed int64
	Min     int64
}

func (e *ShortRunError) Error() string {
	return fmt.Sprintf("insufficient run duration to capture results: %d seconds, min required: %d seconds", e.Elapsed, e.Min)
}

// Detector extracts the run window from load generator output.
type Detector interface {
	Detect(r io.Reader) (*models.RunWindow, error)
}

// MarkerDetector scrapes JMeter summary output: the first "@ <time> UTC"
// line is the start, the second is the end, and the trailing integer after
// "performed" is the operation count.
type MarkerDetector struct {
	MinDuration time.Duration
}

func NewMarkerDetector() *MarkerDetector {
	return &MarkerDetector{MinDuration: models.MinRunDuration}
}

// DetectFile runs d over the contents of path.
func DetectFile(d Detector, path string) (*models.RunWindow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run output %s: %w", path, err)
	}
	defer f.Close()
	return d.Detect(f)
}

func (d *MarkerDetector) Detect(r io.Reader) (*models.RunWindow, error) {
	var (
		start, end     *time.Time
		operations     *int64
		extraTimestamp int
	)

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")

			if ts, ok := parseTimestamp(line); ok {
				switch {
				case start == nil:
					start = &ts
				case end == nil:
					end = &ts
				default:
					extraTimestamp++
				}
			}

			if ops, ok := parseOperations(line); ok {
				operations = &ops
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read run output: %w", err)
		}
	}

	if extraTimestamp > 0 {
		// Only the first two timestamps are used; more of them means the
		// output format changed and the window may be wrong.
		log.WithField("extra", extraTimestamp).Warn("run output has more than two timestamp lines, using the first two")
	}

	if start == nil || end == nil {
		return nil, ErrRunFailed
	}
	if operations == nil {
		return nil, ErrNoOperations
	}

	w := &models.RunWindow{Start: *start, End: *end, Operations: *operations}
	if !w.LongerThan(d.MinDuration) {
		return nil, &ShortRunError{Elapsed: w.ElapsedSeconds(), Min: int64(d.MinDuration / time.Second)}
	}
	return w, nil
}

// parseTimestamp extracts the text from '@' through "UTC" and parses it.
func parseTimestamp(line string) (time.Time, bool) {
	at := strings.Index(line, timestampStart)
	utc := strings.Index(line, timestampEnd)
	if at == -1 || utc == -1 || utc < at {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(line[at+len(timestampStart) : utc+len(timestampEnd)])
	ts, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// parseOperations reads the integer following "performed" up to the end of
// the line.
func parseOperations(line string) (int64, bool) {
	idx := strings.Index(line, opsMarker)
	if idx == -1 {
		return 0, false
	}
	ops, err := strconv.ParseInt(strings.TrimSpace(line[idx+len(opsMarker):]), 10, 64)
	if err != nil {
		return 0, false
	}
	return ops, true
}
