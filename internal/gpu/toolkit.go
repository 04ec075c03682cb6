package gpu

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"aibootstrap/internal/logging"
)

var nvccReleasePattern = regexp.MustCompile(`release ([0-9]+\.[0-9]+)`)

// OutputFunc runs a program and returns its standard output
type OutputFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// ToolkitDetector locates nvcc and reads its version
type ToolkitDetector struct {
	logger   *logging.Logger
	output   OutputFunc
	lookPath func(string) (string, error)
}

// NewToolkitDetector creates a new toolkit detector
func NewToolkitDetector(logger *logging.Logger) *ToolkitDetector {
	return NewToolkitDetectorWith(logger, exec.LookPath, commandOutput)
}

// NewToolkitDetectorWith uses custom PATH lookup and command execution (for testing)
func NewToolkitDetectorWith(logger *logging.Logger, lookPath func(string) (string, error), output OutputFunc) *ToolkitDetector {
	return &ToolkitDetector{
		logger:   logger,
		output:   output,
		lookPath: lookPath,
	}
}

// DetectToolkit finds nvcc on PATH, falling back to the versioned install path
func (td *ToolkitDetector) DetectToolkit(ctx context.Context, fallbackPath string) ToolkitReport {
	report := ToolkitReport{}

	path, err := td.lookPath("nvcc")
	if err != nil {
		if fallbackPath == "" {
			report.ErrorMessage = "nvcc not found on PATH"
			return report
		}
		if _, statErr := os.Stat(fallbackPath); statErr != nil {
			report.ErrorMessage = fmt.Sprintf("nvcc not found on PATH or at %s", fallbackPath)
			return report
		}
		path = fallbackPath
	}

	report.Found = true
	report.Path = path

	out, err := td.output(ctx, path, "--version")
	if err != nil {
		report.ErrorMessage = fmt.Sprintf("nvcc --version failed: %v", err)
		td.logger.Warn("gpu.toolkit.version.failed", "Failed to query nvcc version", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return report
	}

	report.Version = ParseNVCCVersion(string(out))
	td.logger.Debug("gpu.toolkit.detected", "CUDA toolkit detected", map[string]interface{}{
		"path":    path,
		"version": report.Version,
	})
	return report
}

// ParseNVCCVersion extracts "12.4" from nvcc's "Cuda compilation tools, release 12.4, V12.4.131"
func ParseNVCCVersion(output string) string {
	m := nvccReleasePattern.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return m[1]
}

func commandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	// #nosec G204 -- name is nvcc resolved from PATH or configuration
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}
