package config

import (
	"path"
	"strings"
)

// Config represents the complete aibootstrap configuration
type Config struct {
	// TargetUser is granted sudo and receives the user-level setup; empty means prompt
	TargetUser string         `yaml:"target_user"`
	AdminGroup string         `yaml:"admin_group"`
	Sources    SourcesConfig  `yaml:"sources"`
	Packages   PackagesConfig `yaml:"packages"`
	CUDA       CUDAConfig     `yaml:"cuda"`
	Profiles   ProfilesConfig `yaml:"profiles"`
	Python     PythonConfig   `yaml:"python"`
	Logging    LoggingConfig  `yaml:"logging"`
	Metrics    MetricsConfig  `yaml:"metrics"`
}

// SourcesConfig controls which repository components get enabled where
type SourcesConfig struct {
	Files      []string `yaml:"files"`
	Components []string `yaml:"components"`
}

// PackagesConfig lists the Debian packages installed by the fixed steps
type PackagesConfig struct {
	KernelHeadersPrefix string   `yaml:"kernel_headers_prefix"`
	Driver              []string `yaml:"driver"`
	Utilities           []string `yaml:"utilities"`
	Development         []string `yaml:"development"`
}

// CUDAConfig pins the toolkit version and its vendor repository keyring
type CUDAConfig struct {
	Version            string   `yaml:"version"`
	Components         []string `yaml:"components"`
	InstallRoot        string   `yaml:"install_root"`
	KeyringPackage     string   `yaml:"keyring_package"`
	KeyringURL         string   `yaml:"keyring_url"`
	KeyringPath        string   `yaml:"keyring_path"`
	KeyringFingerprint string   `yaml:"keyring_fingerprint"`
}

// ProfilesConfig names the shell profiles receiving environment exports
type ProfilesConfig struct {
	// User is relative to the target user's home directory
	User   string `yaml:"user"`
	System string `yaml:"system"`
}

// PythonConfig describes the third-party Python package manager install
type PythonConfig struct {
	Command      string   `yaml:"command"`
	InstallerURL string   `yaml:"installer_url"`
	InstallerEnv []string `yaml:"installer_env"`

	// BinDir is relative to the target user's home directory
	BinDir string `yaml:"bin_dir"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MetricsConfig represents run metrics output; an empty textfile disables it
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}

// PackageSuffix turns "12.4" into the "12-4" suffix NVIDIA uses in package names
func (c CUDAConfig) PackageSuffix() string {
	return strings.ReplaceAll(c.Version, ".", "-")
}

// Packages returns the versioned toolkit package set
func (c CUDAConfig) Packages() []string {
	pkgs := make([]string, 0, len(c.Components))
	for _, component := range c.Components {
		pkgs = append(pkgs, "cuda-"+component+"-"+c.PackageSuffix())
	}
	return pkgs
}

// InstallDir is the versioned toolkit directory, e.g. /usr/local/cuda-12.4
func (c CUDAConfig) InstallDir() string {
	return path.Join(c.InstallRoot, "cuda-"+c.Version)
}

// LinkPath is the unversioned convenience link, e.g. /usr/local/cuda
func (c CUDAConfig) LinkPath() string {
	return path.Join(c.InstallRoot, "cuda")
}

// CompilerPath is where nvcc lands inside the versioned directory
func (c CUDAConfig) CompilerPath() string {
	return path.Join(c.InstallDir(), "bin", "nvcc")
}
