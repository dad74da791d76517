package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/models"
	timeutils "github.com/imishinist/nnperf/internal/time"
)

// ArchiveDir names the directory holding the artifacts of one combination.
func ArchiveDir(root string, cfg models.RunConfiguration) string {
	name := fmt.Sprintf("rms_%s_opt_%s_read_%d_write_%d",
		models.Label(cfg.Key.RMS), models.Label(cfg.Key.Optimization), cfg.ReadCount, cfg.WriteCount)
	return filepath.Join(root, name)
}

// Archive moves files into the combination directory, prefixing each with
// the archival timestamp. Archival is best-effort: a directory or file that
// cannot be handled is logged and skipped. It returns the paths that were
// archived.
func Archive(root string, files []string, cfg models.RunConfiguration, now time.Time) []string {
	dir := ArchiveDir(root, cfg)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.WithError(err).WithField("dir", dir).Warn("failed to create archive dir, run artifacts left in place")
		return nil
	}

	stamp := now.Format(timeutils.ArchiveStamp)
	var archived []string
	for _, file := range files {
		target := filepath.Join(dir, stamp+"_"+filepath.Base(file))
		if err := os.Rename(file, target); err != nil {
			log.WithError(err).WithField("file", file).Warn("failed to archive run artifact")
			continue
		}
		archived = append(archived, target)
	}

	log.WithFields(log.Fields{"dir": dir, "files": len(archived)}).Info("archived run artifacts")
	return archived
}
