package handlers

import (
	"fmt"

	"aibootstrap/internal/config"
	"aibootstrap/internal/diag"
	"aibootstrap/internal/logging"
)

// Diag writes a support bundle. A broken configuration is bundled as well,
// so loading falls back to the defaults instead of failing.
func Diag(opts Options, output string, streams Streams) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(streams.Err, "Warning: %v (collecting with defaults)\n", err)
		cfg = config.DefaultConfig()
		if opts.LogFile != "" {
			cfg.Logging.File = opts.LogFile
		}
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.SystemConfigPath()
	}

	diagConfig := diag.NewConfig(version)
	diagConfig.ConfigPath = configPath
	diagConfig.StateDir = stateDir()
	diagConfig.LogFile = cfg.Logging.File
	diagConfig.SourceFiles = cfg.Sources.Files
	if output != "" {
		diagConfig.OutputPath = output
	}

	logger := logging.NewLogger(logging.LevelWarn)
	path, err := diag.NewPackager(diagConfig, newSystem(logger), logger).CreatePackage()
	if err != nil {
		return err
	}

	fmt.Fprintf(streams.Out, "Diagnostic package created: %s\n", path)
	return nil
}
