package results

import (
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/models"
	timeutils "github.com/imishinist/nnperf/internal/time"
)

// Summary logs the human readable outcome of one run.
func Summary(w *models.RunWindow, record *models.RunRecord, metricNames []string) {
	elapsed := w.ElapsedSeconds()
	log.Infof("Run Started at       : %s", record.Values[ColumnStartTime])
	log.Infof("Run Ended at         : %s", record.Values[ColumnEndTime])
	log.Infof("Run Duration         : %s", timeutils.FormatDuration(elapsed))
	log.Infof("Number of operations : %s", humanize.Comma(w.Operations))
	log.Infof("Run Duration(in secs): %d", elapsed)
	log.Infof("Throughput           : %s", record.Values[ColumnTPS])
	for _, name := range metricNames {
		log.Infof("%s : %s", name, record.Values[name])
	}
}
