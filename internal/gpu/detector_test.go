//go:build cuda

package gpu

import (
	"strings"
	"testing"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"aibootstrap/internal/logging"
)

const mockDriverVersion = "550.54.15"

func TestDetector_DetectGPUs_Success(t *testing.T) {
	logger := logging.NewLogger(logging.LevelError)

	mockNVML := NewMockNVML()
	mockNVML.DriverVersion = mockDriverVersion
	mockNVML.CudaVersion = 12040
	mockNVML.DeviceCount = 1
	mockNVML.Devices = []MockDevice{
		{
			Name:             "NVIDIA GeForce RTX 4090",
			NameReturn:       nvml.SUCCESS,
			UUID:             "GPU-12345678-1234-1234-1234-123456789012",
			UUIDReturn:       nvml.SUCCESS,
			MemoryTotal:      24 * 1024 * 1024 * 1024,
			MemoryInfoReturn: nvml.SUCCESS,
		},
	}

	report := NewDetectorWithNVML(mockNVML, logger).DetectGPUs()

	if !report.NVMLOk {
		t.Error("Expected NVML to be OK")
	}
	if report.DriverVersion != mockDriverVersion {
		t.Errorf("Expected driver version %s, got: %s", mockDriverVersion, report.DriverVersion)
	}
	if report.CUDADriverVersion() != "12.4" {
		t.Errorf("Expected CUDA 12.4, got: %s", report.CUDADriverVersion())
	}
	if len(report.GPUs) != 1 {
		t.Fatalf("Expected 1 GPU, got: %d", len(report.GPUs))
	}
	if report.GPUs[0].MemoryMB != 24*1024 {
		t.Errorf("Expected 24576 MB, got: %d", report.GPUs[0].MemoryMB)
	}
	if mockNVML.shutdownCalls != 1 {
		t.Errorf("Expected one Shutdown call, got %d", mockNVML.shutdownCalls)
	}
}

func TestDetector_DetectGPUs_InitFailure(t *testing.T) {
	mockNVML := NewMockNVML()
	mockNVML.InitReturn = nvml.ERROR_DRIVER_NOT_LOADED

	report := NewDetectorWithNVML(mockNVML, logging.NewLogger(logging.LevelError)).DetectGPUs()

	if report.NVMLOk {
		t.Error("Expected NVML to fail")
	}
	if !strings.Contains(report.ErrorMessage, "reboot") {
		t.Errorf("Expected reboot hint, got: %s", report.ErrorMessage)
	}
	if mockNVML.shutdownCalls != 0 {
		t.Error("Shutdown must not be called after a failed Init")
	}
}

func TestDetector_DetectGPUs_DeviceCountFailure(t *testing.T) {
	mockNVML := NewMockNVML()
	mockNVML.DriverVersion = mockDriverVersion
	mockNVML.DeviceCountReturn = nvml.ERROR_UNKNOWN

	report := NewDetectorWithNVML(mockNVML, logging.NewLogger(logging.LevelError)).DetectGPUs()

	if !report.NVMLOk {
		t.Error("Expected NVML init to have succeeded")
	}
	if report.ErrorMessage == "" {
		t.Error("Expected error message for device count failure")
	}
	if len(report.GPUs) != 0 {
		t.Errorf("Expected no GPUs, got %d", len(report.GPUs))
	}
}

func TestDetector_DetectGPUs_PartialDeviceInfo(t *testing.T) {
	mockNVML := NewMockNVML()
	mockNVML.DeviceCount = 2
	mockNVML.Devices = []MockDevice{
		{Name: "NVIDIA L4", NameReturn: nvml.SUCCESS, UUIDReturn: nvml.ERROR_NOT_SUPPORTED, MemoryInfoReturn: nvml.ERROR_NOT_SUPPORTED},
	}

	report := NewDetectorWithNVML(mockNVML, logging.NewLogger(logging.LevelError)).DetectGPUs()

	if len(report.GPUs) != 1 {
		t.Fatalf("Expected the unreachable second handle to be skipped, got %d GPUs", len(report.GPUs))
	}
	if report.GPUs[0].Name != "NVIDIA L4" || report.GPUs[0].UUID != "" || report.GPUs[0].MemoryMB != 0 {
		t.Errorf("Unexpected device info: %+v", report.GPUs[0])
	}
}
