// =============================================================================
// XML to XLSX Converter - Logging Setup
// =============================================================================
//
// Builds the shared logrus logger from the application configuration. The
// logger is constructed once in the CLI layer and injected into the pipeline
// components; the library never creates its own global logger.
//
// =============================================================================

package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/config"
)

// New creates a logger configured from cfg. When cfg.LogFile is set, output
// goes to both stderr and the file; the file is created if missing.
func New(cfg *config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	return log, nil
}

// Discard returns a logger that swallows all output. Used by tests and as
// the fallback when a component receives a nil logger.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
