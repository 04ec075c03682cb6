package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"aibootstrap/internal/configdir"
)

const systemConfigFile = "config.yaml"

// Load loads defaults merged with the system config file, when present
// Priority: defaults < system config
func Load() (Config, error) {
	cfg := DefaultConfig()

	systemPath := SystemConfigPath()
	if err := mergeConfigFile(&cfg, systemPath); err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to load system config: %w", err)
		}
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}

	return cfg, nil
}

// LoadFrom loads configuration from a specific file path
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := mergeConfigFile(&cfg, path); err != nil {
		return cfg, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}

	return cfg, nil
}

// mergeConfigFile reads a YAML file and merges it into the existing config
func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path is constructed from trusted sources
	if err != nil {
		return err
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfig(cfg, &overlay)
	return nil
}

// mergeConfig merges non-zero values from src into dst; lists replace rather than append
func mergeConfig(dst, src *Config) {
	mergeString(&dst.TargetUser, src.TargetUser)
	mergeString(&dst.AdminGroup, src.AdminGroup)

	mergeList(&dst.Sources.Files, src.Sources.Files)
	mergeList(&dst.Sources.Components, src.Sources.Components)

	mergeString(&dst.Packages.KernelHeadersPrefix, src.Packages.KernelHeadersPrefix)
	mergeList(&dst.Packages.Driver, src.Packages.Driver)
	mergeList(&dst.Packages.Utilities, src.Packages.Utilities)
	mergeList(&dst.Packages.Development, src.Packages.Development)

	mergeString(&dst.CUDA.Version, src.CUDA.Version)
	mergeList(&dst.CUDA.Components, src.CUDA.Components)
	mergeString(&dst.CUDA.InstallRoot, src.CUDA.InstallRoot)
	mergeString(&dst.CUDA.KeyringPackage, src.CUDA.KeyringPackage)
	mergeString(&dst.CUDA.KeyringURL, src.CUDA.KeyringURL)
	mergeString(&dst.CUDA.KeyringPath, src.CUDA.KeyringPath)
	mergeString(&dst.CUDA.KeyringFingerprint, src.CUDA.KeyringFingerprint)

	mergeString(&dst.Profiles.User, src.Profiles.User)
	mergeString(&dst.Profiles.System, src.Profiles.System)

	mergeString(&dst.Python.Command, src.Python.Command)
	mergeString(&dst.Python.InstallerURL, src.Python.InstallerURL)
	mergeList(&dst.Python.InstallerEnv, src.Python.InstallerEnv)
	mergeString(&dst.Python.BinDir, src.Python.BinDir)

	mergeString(&dst.Logging.Level, src.Logging.Level)
	mergeString(&dst.Logging.File, src.Logging.File)

	mergeString(&dst.Metrics.Textfile, src.Metrics.Textfile)
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeList(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = append([]string(nil), src...)
	}
}

// formatValidationErrors formats validation errors for display
func formatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	if len(errors) == 1 {
		return errors[0].Error()
	}
	result := fmt.Sprintf("%d validation errors:\n", len(errors))
	for _, err := range errors {
		result += "  - " + err.Error() + "\n"
	}
	return result
}

// SystemConfigPath returns the path to the system configuration file
func SystemConfigPath() string {
	return filepath.Join(configdir.ConfigDir(), systemConfigFile)
}
