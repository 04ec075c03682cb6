// Package diag bundles what is needed to troubleshoot a provisioning run
// into a single ZIP file: redacted configuration and logs, the last run
// record, the APT source lists and basic host facts.
package diag

import "time"

// Manifest represents the diagnostic package manifest
type Manifest struct {
	Timestamp string         `json:"timestamp"`
	Host      string         `json:"host"`
	Version   string         `json:"aibootstrap_version"`
	Files     []ManifestFile `json:"files"`
}

// ManifestFile represents a file in the diagnostic package
type ManifestFile struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// Config configures diagnostic collection
type Config struct {
	ConfigPath  string
	StateDir    string
	LogFile     string
	SourceFiles []string
	OutputPath  string
	Version     string
}

// NewConfig creates a diagnostic config writing to a timestamped file in the working directory
func NewConfig(version string) *Config {
	return &Config{
		OutputPath: generateOutputPath(),
		Version:    version,
	}
}

func generateOutputPath() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	return "aibootstrap-diag-" + timestamp + ".zip"
}
