package gpu

import "fmt"

// GPUInfo represents information about a single GPU
type GPUInfo struct {
	Name     string `json:"name"`
	UUID     string `json:"uuid"`
	MemoryMB uint64 `json:"memory_mb"`
	Index    int    `json:"index"`
}

// GPUReport is what the NVIDIA driver reports after a reboot.
// Source is SourceNVML or SourceProcfs; CUDAVersion is only known through NVML.
type GPUReport struct {
	Source        string    `json:"source"`
	DriverVersion string    `json:"driver_version"`
	CUDAVersion   int       `json:"cuda_version"`
	NVMLOk        bool      `json:"nvml_ok"`
	GPUs          []GPUInfo `json:"gpus"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

// CUDADriverVersion renders the NVML integer CUDA version, e.g. 12040 as "12.4"
func (r GPUReport) CUDADriverVersion() string {
	return FormatCUDAVersion(r.CUDAVersion)
}

// FormatCUDAVersion turns NVML's 1000*major + 10*minor encoding into "major.minor"
func FormatCUDAVersion(v int) string {
	if v <= 0 {
		return ""
	}
	return fmt.Sprintf("%d.%d", v/1000, (v%1000)/10)
}

// ToolkitReport describes the installed CUDA compiler
type ToolkitReport struct {
	Found        bool   `json:"found"`
	Path         string `json:"path,omitempty"`
	Version      string `json:"version,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
