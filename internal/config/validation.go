package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Debian's adduser default NAME_REGEX
	usernamePattern    = regexp.MustCompile(`^[a-z][-a-z0-9_]*\$?$`)
	cudaVersionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)
	fingerprintPattern = regexp.MustCompile(`^[0-9A-Fa-f]{40}$`)
)

// Validate checks if the configuration is valid
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateUser()...)
	errors = append(errors, c.validateSources()...)
	errors = append(errors, c.validatePackages()...)
	errors = append(errors, c.validateCUDA()...)
	errors = append(errors, c.validateProfiles()...)
	errors = append(errors, c.validatePython()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// ValidateUsername checks a login name against Debian's default rules
func ValidateUsername(name string) error {
	if len(name) > 32 {
		return fmt.Errorf("must be at most 32 characters, got %d", len(name))
	}
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("invalid username '%s'", name)
	}
	return nil
}

func (c *Config) validateUser() []ValidationError {
	var errors []ValidationError

	if c.TargetUser != "" {
		if err := ValidateUsername(c.TargetUser); err != nil {
			errors = append(errors, ValidationError{Path: "target_user", Message: err.Error()})
		}
		if c.TargetUser == "root" {
			errors = append(errors, ValidationError{Path: "target_user", Message: "must not be root"})
		}
	}

	if c.AdminGroup == "" {
		errors = append(errors, ValidationError{Path: "admin_group", Message: "must not be empty"})
	}

	return errors
}

func (c *Config) validateSources() []ValidationError {
	var errors []ValidationError

	if len(c.Sources.Files) == 0 {
		errors = append(errors, ValidationError{Path: "sources.files", Message: "must list at least one file"})
	}
	for i, f := range c.Sources.Files {
		if !filepath.IsAbs(f) {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("sources.files[%d]", i),
				Message: fmt.Sprintf("must be an absolute path, got '%s'", f),
			})
		}
	}
	if len(c.Sources.Components) == 0 {
		errors = append(errors, ValidationError{Path: "sources.components", Message: "must list at least one component"})
	}

	return errors
}

func (c *Config) validatePackages() []ValidationError {
	var errors []ValidationError

	if c.Packages.KernelHeadersPrefix == "" {
		errors = append(errors, ValidationError{Path: "packages.kernel_headers_prefix", Message: "must not be empty"})
	}
	if len(c.Packages.Driver) == 0 {
		errors = append(errors, ValidationError{Path: "packages.driver", Message: "must list at least one package"})
	}

	return errors
}

func (c *Config) validateCUDA() []ValidationError {
	var errors []ValidationError

	if !cudaVersionPattern.MatchString(c.CUDA.Version) {
		errors = append(errors, ValidationError{
			Path:    "cuda.version",
			Message: fmt.Sprintf("must look like MAJOR.MINOR, got '%s'", c.CUDA.Version),
		})
	}
	if len(c.CUDA.Components) == 0 {
		errors = append(errors, ValidationError{Path: "cuda.components", Message: "must list at least one component"})
	}
	if !filepath.IsAbs(c.CUDA.InstallRoot) {
		errors = append(errors, ValidationError{
			Path:    "cuda.install_root",
			Message: fmt.Sprintf("must be an absolute path, got '%s'", c.CUDA.InstallRoot),
		})
	}
	if c.CUDA.KeyringPackage == "" {
		errors = append(errors, ValidationError{Path: "cuda.keyring_package", Message: "must not be empty"})
	}
	if err := validateHTTPS(c.CUDA.KeyringURL); err != nil {
		errors = append(errors, ValidationError{Path: "cuda.keyring_url", Message: err.Error()})
	}
	if c.CUDA.KeyringFingerprint != "" {
		fp := strings.ReplaceAll(c.CUDA.KeyringFingerprint, " ", "")
		if !fingerprintPattern.MatchString(fp) {
			errors = append(errors, ValidationError{
				Path:    "cuda.keyring_fingerprint",
				Message: "must be a 40 character hex fingerprint",
			})
		}
	}

	return errors
}

func (c *Config) validateProfiles() []ValidationError {
	var errors []ValidationError

	if c.Profiles.User == "" || filepath.IsAbs(c.Profiles.User) {
		errors = append(errors, ValidationError{
			Path:    "profiles.user",
			Message: fmt.Sprintf("must be a path relative to the home directory, got '%s'", c.Profiles.User),
		})
	}
	if !filepath.IsAbs(c.Profiles.System) {
		errors = append(errors, ValidationError{
			Path:    "profiles.system",
			Message: fmt.Sprintf("must be an absolute path, got '%s'", c.Profiles.System),
		})
	}

	return errors
}

func (c *Config) validatePython() []ValidationError {
	var errors []ValidationError

	if c.Python.Command == "" {
		errors = append(errors, ValidationError{Path: "python.command", Message: "must not be empty"})
	}
	if err := validateHTTPS(c.Python.InstallerURL); err != nil {
		errors = append(errors, ValidationError{Path: "python.installer_url", Message: err.Error()})
	}
	if c.Python.BinDir == "" || filepath.IsAbs(c.Python.BinDir) {
		errors = append(errors, ValidationError{
			Path:    "python.bin_dir",
			Message: fmt.Sprintf("must be a path relative to the home directory, got '%s'", c.Python.BinDir),
		})
	}
	for i, kv := range c.Python.InstallerEnv {
		if !strings.Contains(kv, "=") {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("python.installer_env[%d]", i),
				Message: fmt.Sprintf("must be KEY=VALUE, got '%s'", kv),
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	validLevels := []string{"debug", "info", "warn", "error"}
	if contains(validLevels, c.Logging.Level) {
		return nil
	}

	return []ValidationError{{
		Path:    "logging.level",
		Message: fmt.Sprintf("must be one of %v, got '%s'", validLevels, c.Logging.Level),
	}}
}

func validateHTTPS(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("must be an https URL, got '%s'", raw)
	}
	return nil
}

// contains checks if a string is in a slice
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
