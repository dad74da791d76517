package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Configure sends log output to stdout and, when logFile is set, appends it
// to that file as well. The returned close func flushes the file.
func Configure(logFile string, verbose bool) (func() error, error) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: logFile != ""})
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if logFile == "" {
		log.SetOutput(os.Stdout)
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f.Close, nil
}
