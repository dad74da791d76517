package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/models"
)

// SchemaError means a record's columns differ from the table header. It is
// a programming error: all records of a table must come from the same merge.
type SchemaError struct {
	Want []string
	Got  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("record schema mismatch: table has [%s], record has [%s]",
		strings.Join(e.Want, ","), strings.Join(e.Got, ","))
}

// Recorder appends run records to a CSV table. The header is written only
// when the table is first created.
type Recorder struct {
	path   string
	header []string
}

func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

func (r *Recorder) Append(record *models.RunRecord) error {
	if r.header == nil {
		header, err := readHeader(r.path)
		if err != nil {
			return err
		}
		r.header = header
	}

	writeHeader := r.header == nil
	if !writeHeader && !equalKeys(r.header, record.Keys) {
		return &SchemaError{Want: r.header, Got: record.Keys}
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results table %s: %w", r.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(record.Keys); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := w.Write(record.Row()); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write results table %s: %w", r.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close results table %s: %w", r.path, err)
	}

	if writeHeader {
		r.header = append([]string(nil), record.Keys...)
	}
	log.WithField("file", r.path).Info("saved run results")
	return nil
}

// readHeader returns the first row of the table, or nil if it does not exist
// or is empty.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open results table %s: %w", path, err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	return header, nil
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
