// Package handlers implements the business logic behind each CLI command.
//
// Commands in the commands package only bind flags; everything that loads
// configuration, touches the host or prints results lives here.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"os"

	"aibootstrap/internal/config"
	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/logging"
	"aibootstrap/internal/provision"
)

var version = "dev"

// SetVersion records the build version written into run records
func SetVersion(v string) {
	version = v
}

// Options are the flags shared by every command that reads configuration
type Options struct {
	ConfigPath string
	User       string
	LogLevel   string
	LogFile    string
}

// Streams are the terminal handles a command talks to
type Streams struct {
	In  *os.File
	Out io.Writer
	Err io.Writer
}

// DefaultStreams returns the process standard streams
func DefaultStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// ConfigError marks a failure to load or validate configuration
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return provision.ExitConfig
	}
	return provision.ExitCode(err)
}

// loadConfig applies the flag overrides on top of the layered file config
func loadConfig(opts Options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFrom(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, &ConfigError{Err: err}
	}

	if opts.User != "" {
		cfg.TargetUser = opts.User
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, &ConfigError{Err: fmt.Errorf("invalid flags: %w", errs[0])}
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if cfg.File == "" {
		return logging.NewLogger(level), nil
	}
	logger, err := logging.NewFileLogger(level, cfg.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger, nil
}

// setup loads configuration and builds the logger for a command
func setup(opts Options) (config.Config, *logging.Logger, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func stateDir() string {
	return fsutil.GetStateDir(fsutil.DefaultStateDir)
}
