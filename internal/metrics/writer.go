package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"aibootstrap/internal/logging"
	"aibootstrap/internal/provision"
)

// Writer writes run metrics to a textfile collector file
type Writer struct {
	logger *logging.Logger
}

// NewWriter creates a new metrics writer
func NewWriter(logger *logging.Logger) *Writer {
	return &Writer{
		logger: logger,
	}
}

// Write renders the report's metrics into path, replacing it atomically
func (w *Writer) Write(report provision.Report, path string) error {
	m := NewRunMetrics()
	m.Observe(report)

	if err := prometheus.WriteToTextfile(path, m.Registry()); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	w.logger.Debug("metrics.textfile.written", "Run metrics written", map[string]interface{}{
		"path":  path,
		"steps": len(report.Steps),
	})
	return nil
}
