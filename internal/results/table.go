package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/imishinist/nnperf/internal/models"
)

// ReadRecords loads every row of a results table written by Recorder.
func ReadRecords(path string) ([]*models.RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results table %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	var records []*models.RunRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		record := models.NewRunRecord()
		for i, key := range header {
			record.Set(key, row[i])
		}
		records = append(records, record)
	}
}

// Configuration recovers the run description stored in a results row. Only
// the toggles and the read/write mix survive in the table.
func Configuration(record *models.RunRecord) (models.RunConfiguration, error) {
	var cfg models.RunConfiguration

	rms, err := parseLabel(record, ColumnRMSEnabled)
	if err != nil {
		return cfg, err
	}
	opt, err := parseLabel(record, ColumnOptimizationEnabled)
	if err != nil {
		return cfg, err
	}
	cfg.Key = models.ConfigKey{RMS: rms, Optimization: opt}

	mix := record.Values[ColumnReadWriteMix]
	reads, writes, ok := parseMix(mix)
	if !ok {
		return cfg, fmt.Errorf("invalid %s %q", ColumnReadWriteMix, mix)
	}
	cfg.ReadOps = reads
	cfg.TotalOps = reads + writes
	return cfg, nil
}

// parseMix reverses RunConfiguration.ReadWriteMix.
func parseMix(mix string) (reads, writes int, ok bool) {
	r, rest, found := strings.Cut(mix, "_read_")
	if !found {
		return 0, 0, false
	}
	w, found := strings.CutSuffix(rest, "_write")
	if !found {
		return 0, 0, false
	}
	reads, err := strconv.Atoi(r)
	if err != nil {
		return 0, 0, false
	}
	writes, err = strconv.Atoi(w)
	if err != nil {
		return 0, 0, false
	}
	return reads, writes, true
}

func parseLabel(record *models.RunRecord, column string) (bool, error) {
	switch v := record.Values[column]; v {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s %q: want yes or no", column, v)
	}
}
