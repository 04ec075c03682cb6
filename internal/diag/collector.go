package diag

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aibootstrap/internal/host"
	"aibootstrap/internal/logging"
	"aibootstrap/internal/sources"
	"aibootstrap/internal/state"
)

// Collector gathers diagnostic artifacts
type Collector struct {
	config   *Config
	probe    host.Probe
	redactor *Redactor
	logger   *logging.Logger
}

// NewCollector creates a new diagnostic collector
func NewCollector(config *Config, probe host.Probe, logger *logging.Logger) *Collector {
	return &Collector{
		config:   config,
		probe:    probe,
		redactor: NewRedactor(),
		logger:   logger,
	}
}

// CollectConfig gathers and redacts the configuration file
func (c *Collector) CollectConfig() (map[string][]byte, error) {
	files := make(map[string][]byte)
	if c.config.ConfigPath == "" {
		return files, nil
	}
	return files, c.collect(files, "config/config.yaml", c.config.ConfigPath, true)
}

// CollectLogs gathers and redacts the log file, when logging to one
func (c *Collector) CollectLogs() (map[string][]byte, error) {
	files := make(map[string][]byte)
	if c.config.LogFile == "" {
		return files, nil
	}
	return files, c.collect(files, "logs/"+filepath.Base(c.config.LogFile), c.config.LogFile, true)
}

// CollectState gathers the last run record and any run lock
func (c *Collector) CollectState() (map[string][]byte, error) {
	files := make(map[string][]byte)
	if c.config.StateDir == "" {
		return files, nil
	}
	for _, name := range []string{state.LastRunFileName, state.LockFileName} {
		if err := c.collect(files, "state/"+name, filepath.Join(c.config.StateDir, name), false); err != nil {
			return files, err
		}
	}
	return files, nil
}

// CollectSources gathers the APT source lists together with their backups
func (c *Collector) CollectSources() (map[string][]byte, error) {
	files := make(map[string][]byte)
	for _, path := range c.config.SourceFiles {
		for _, candidate := range []string{path, path + sources.BackupSuffix} {
			archivePath := "sources/" + strings.TrimPrefix(filepath.ToSlash(candidate), "/")
			if err := c.collect(files, archivePath, candidate, true); err != nil {
				return files, err
			}
		}
	}

	c.logger.Info("diag.collect.sources.complete", "Source list collection complete", map[string]interface{}{
		"file_count": len(files),
	})
	return files, nil
}

// CollectSystemInfo gathers host and version information
func (c *Collector) CollectSystemInfo() (map[string][]byte, error) {
	files := make(map[string][]byte)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	sysInfo := map[string]interface{}{
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
		"host":                hostname,
		"aibootstrap_version": c.config.Version,
		"effective_uid":       c.probe.EffectiveUID(),
	}
	if release, err := c.probe.KernelRelease(); err == nil {
		sysInfo["kernel_release"] = release
	}
	if data, err := c.probe.ReadFile("/etc/os-release"); err == nil {
		sysInfo["os_release"] = parseOSRelease(string(data))
	}

	sysInfoJSON, err := json.MarshalIndent(sysInfo, "", "  ")
	if err != nil {
		return files, fmt.Errorf("failed to marshal system info: %w", err)
	}

	files["system_info.json"] = sysInfoJSON
	c.logger.Info("diag.collect.sysinfo.complete", "System info collection complete", nil)
	return files, nil
}

// collect reads src into files[archivePath]; a missing or unreadable file only warns
func (c *Collector) collect(files map[string][]byte, archivePath, src string, redact bool) error {
	content, err := c.probe.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("diag.collect.missing", "File not present", map[string]interface{}{
			"path": src,
		})
		return nil
	}
	if errors.Is(err, fs.ErrPermission) {
		c.logger.Warn("diag.collect.permission", "File not readable, run as root for a full package", map[string]interface{}{
			"path": src,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	if redact {
		content = []byte(c.redactor.Redact(string(content)))
	}
	files[archivePath] = content
	return nil
}

// parseOSRelease keeps the identifying keys of /etc/os-release
func parseOSRelease(content string) map[string]string {
	keep := map[string]bool{"ID": true, "VERSION_ID": true, "VERSION_CODENAME": true, "PRETTY_NAME": true}
	out := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || !keep[key] {
			continue
		}
		out[key] = strings.Trim(value, `"`)
	}
	return out
}

// CalculateSHA256 computes SHA256 hash of data
func CalculateSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
