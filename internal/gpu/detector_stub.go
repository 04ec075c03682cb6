//go:build !cuda

package gpu

import "aibootstrap/internal/logging"

// Detector reads the driver state from procfs when built without NVML.
type Detector struct {
	procfs *ProcfsReader
	logger *logging.Logger
}

// NewDetector creates a GPU detector backed by /proc/driver/nvidia.
func NewDetector(logger *logging.Logger) *Detector {
	return NewProcfsDetector(NewProcfsReader(), logger)
}

// NewDetectorWithNVML is provided for API compatibility; NVML is ignored when CUDA is disabled.
func NewDetectorWithNVML(_ NVMLInterface, logger *logging.Logger) *Detector {
	return NewDetector(logger)
}

// NewProcfsDetector creates a detector reading from a custom procfs reader (for testing)
func NewProcfsDetector(reader *ProcfsReader, logger *logging.Logger) *Detector {
	return &Detector{procfs: reader, logger: logger}
}

// DetectGPUs reports the loaded kernel module's version and devices.
// The CUDA driver version stays zero; only NVML knows it.
func (d *Detector) DetectGPUs() GPUReport {
	d.logger.Debug("gpu.detect.start", "Reading NVIDIA driver state from procfs (built without cuda tag)", nil)

	report, err := d.procfs.Read()
	if err != nil {
		report.ErrorMessage = err.Error() + " (reboot after driver install?)"
		d.logger.Warn("gpu.procfs.failed", "NVIDIA driver state unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return report
	}

	d.logger.Info("gpu.detect.complete", "GPU detection complete", map[string]interface{}{
		"source":         report.Source,
		"driver_version": report.DriverVersion,
		"gpu_count":      len(report.GPUs),
	})
	return report
}
