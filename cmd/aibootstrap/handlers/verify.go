package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"aibootstrap/internal/config"
	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/gpu"
	"aibootstrap/internal/host"
	"aibootstrap/internal/keyring"
	"aibootstrap/internal/logging"
	"aibootstrap/internal/tui"
)

// ErrVerifyFailed is returned when at least one post-install check fails
var ErrVerifyFailed = errors.New("verification failed")

type gpuDetector interface {
	DetectGPUs() gpu.GPUReport
}

// The detectors verify reads from; replaced in tests
var (
	newGPUDetector = func(logger *logging.Logger) gpuDetector {
		return gpu.NewDetector(logger)
	}
	newToolkitDetector = gpu.NewToolkitDetector
)

// VerifyResult is the machine readable outcome of verify
type VerifyResult struct {
	GPU     gpu.GPUReport     `json:"gpu"`
	Toolkit gpu.ToolkitReport `json:"toolkit"`
	Checks  []tui.Check       `json:"checks"`
	OK      bool              `json:"ok"`
}

// Verify checks a provisioned machine after the reboot: driver loaded,
// compiler present, vendor keyring trusted and uv reachable.
func Verify(ctx context.Context, opts Options, jsonOutput bool, streams Streams) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer fsutil.CloseWithError(logger.Close, logger, "log file")

	sys := newSystem(logger)
	result := VerifyResult{
		GPU:     newGPUDetector(logger).DetectGPUs(),
		Toolkit: newToolkitDetector(logger).DetectToolkit(ctx, cfg.CUDA.CompilerPath()),
	}

	result.Checks = append(result.Checks, driverCheck(result.GPU), toolkitCheck(result.Toolkit, cfg.CUDA.Version))
	if cfg.CUDA.KeyringFingerprint != "" {
		result.Checks = append(result.Checks, keyringCheck(sys, cfg.CUDA))
	}
	result.Checks = append(result.Checks, uvCheck(sys, cfg))

	result.OK = true
	for _, c := range result.Checks {
		result.OK = result.OK && c.OK
	}

	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal verify result: %w", err)
		}
		fmt.Fprintln(streams.Out, string(data))
	} else {
		fmt.Fprint(streams.Out, tui.RenderChecks(result.Checks))
	}

	if !result.OK {
		return ErrVerifyFailed
	}
	return nil
}

// driverCheck passes when the loaded driver shows at least one GPU.
// The CUDA driver version is only printed when NVML supplied it.
func driverCheck(report gpu.GPUReport) tui.Check {
	check := tui.Check{Name: "NVIDIA driver"}
	if report.DriverVersion == "" {
		check.Detail = report.ErrorMessage
		if check.Detail == "" {
			check.Detail = "no driver version reported"
		}
		return check
	}

	detail := "driver " + report.DriverVersion
	if cuda := report.CUDADriverVersion(); cuda != "" {
		detail += ", CUDA " + cuda
	}
	detail += fmt.Sprintf(", %d GPU(s)", len(report.GPUs))

	names := make([]string, 0, len(report.GPUs))
	for _, g := range report.GPUs {
		names = append(names, g.Name)
	}
	if len(names) > 0 {
		detail += ": " + strings.Join(names, ", ")
	}
	if report.ErrorMessage != "" {
		detail += "; " + report.ErrorMessage
	}

	check.OK = len(report.GPUs) > 0 && report.ErrorMessage == ""
	check.Detail = detail
	return check
}

func toolkitCheck(report gpu.ToolkitReport, want string) tui.Check {
	check := tui.Check{Name: "CUDA compiler"}
	switch {
	case !report.Found:
		check.Detail = report.ErrorMessage
	case report.Version == "":
		check.Detail = report.ErrorMessage
	case report.Version != want:
		check.Detail = fmt.Sprintf("%s is release %s, expected %s", report.Path, report.Version, want)
	default:
		check.OK = true
		check.Detail = fmt.Sprintf("%s, release %s", report.Path, report.Version)
	}
	return check
}

func keyringCheck(sys host.System, cuda config.CUDAConfig) tui.Check {
	check := tui.Check{Name: "CUDA repository keyring"}
	ok, err := keyring.Verify(sys, cuda.KeyringPath, cuda.KeyringFingerprint)
	switch {
	case err != nil:
		check.Detail = err.Error()
	case !ok:
		check.Detail = fmt.Sprintf("%s does not contain %s", cuda.KeyringPath, keyring.NormalizeFingerprint(cuda.KeyringFingerprint))
	default:
		check.OK = true
		check.Detail = cuda.KeyringPath
	}
	return check
}

func uvCheck(sys host.System, cfg config.Config) tui.Check {
	check := tui.Check{Name: "Python package manager (" + cfg.Python.Command + ")"}
	if sys.CommandOnPath(cfg.Python.Command) {
		check.OK = true
		check.Detail = "on PATH"
		return check
	}
	if cfg.TargetUser == "" {
		check.Detail = "not on PATH; pass --user to check the target user's home"
		return check
	}

	account, err := sys.LookupUser(cfg.TargetUser)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	binary := filepath.Join(account.HomeDir, cfg.Python.BinDir, cfg.Python.Command)
	if sys.PathExists(binary) {
		check.OK = true
		check.Detail = binary
		return check
	}
	check.Detail = binary + " missing"
	return check
}
