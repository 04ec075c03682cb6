package diag

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/host"
	"aibootstrap/internal/logging"
)

const manifestName = "diag_manifest.json"

// Packager creates diagnostic ZIP packages
type Packager struct {
	config    *Config
	collector *Collector
	logger    *logging.Logger
}

// NewPackager creates a new diagnostic packager
func NewPackager(config *Config, probe host.Probe, logger *logging.Logger) *Packager {
	return &Packager{
		config:    config,
		collector: NewCollector(config, probe, logger),
		logger:    logger,
	}
}

// CreatePackage collects every artifact and writes the ZIP.
// A failing collector is logged and the package is written without its files.
func (p *Packager) CreatePackage() (string, error) {
	p.logger.Info("diag.package.start", "Creating diagnostic package", map[string]interface{}{
		"output": p.config.OutputPath,
	})

	collectors := []struct {
		name    string
		collect func() (map[string][]byte, error)
	}{
		{"config", p.collector.CollectConfig},
		{"logs", p.collector.CollectLogs},
		{"state", p.collector.CollectState},
		{"sources", p.collector.CollectSources},
		{"sysinfo", p.collector.CollectSystemInfo},
	}

	allFiles := make(map[string][]byte)
	for _, c := range collectors {
		files, err := c.collect()
		if err != nil {
			p.logger.Error("diag.package.collect_error", "Failed to collect "+c.name, map[string]interface{}{
				"error": err.Error(),
			})
		}
		for path, content := range files {
			allFiles[path] = content
		}
	}

	manifestJSON, err := json.MarshalIndent(p.createManifest(allFiles), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	allFiles[manifestName] = manifestJSON

	if err := p.createZIP(allFiles); err != nil {
		return "", fmt.Errorf("failed to create ZIP: %w", err)
	}

	p.logger.Info("diag.package.complete", "Diagnostic package created", map[string]interface{}{
		"output":     p.config.OutputPath,
		"file_count": len(allFiles),
	})

	return p.config.OutputPath, nil
}

func (p *Packager) createManifest(files map[string][]byte) *Manifest {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	manifest := &Manifest{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Host:      hostname,
		Version:   p.config.Version,
		Files:     make([]ManifestFile, 0, len(files)),
	}
	for _, path := range sortedPaths(files) {
		manifest.Files = append(manifest.Files, ManifestFile{
			Path:      path,
			SizeBytes: int64(len(files[path])),
			SHA256:    CalculateSHA256(files[path]),
		})
	}
	return manifest
}

func (p *Packager) createZIP(files map[string][]byte) (err error) {
	zipFile, err := os.OpenFile(p.config.OutputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fsutil.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		err = errors.Join(err, zipFile.Close())
	}()

	zipWriter := zip.NewWriter(zipFile)
	for _, path := range sortedPaths(files) {
		writer, err := zipWriter.Create(path)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", path, err)
		}
		if _, err := writer.Write(files[path]); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return zipWriter.Close()
}

func sortedPaths(files map[string][]byte) []string {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
