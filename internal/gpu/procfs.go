package gpu

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultProcRoot is where the NVIDIA kernel module publishes its state
	DefaultProcRoot = "/proc/driver/nvidia"
	// DefaultDevRoot holds the /dev/nvidiaN device nodes
	DefaultDevRoot = "/dev"

	// SourceNVML and SourceProcfs name where a GPUReport came from
	SourceNVML   = "nvml"
	SourceProcfs = "procfs"
)

var (
	driverVersionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+(\.[0-9]+)?$`)
	deviceNodePattern    = regexp.MustCompile(`^nvidia([0-9]+)$`)
)

// ErrModuleNotLoaded means the kernel module exposes nothing, usually before the first reboot
var ErrModuleNotLoaded = errors.New("NVIDIA kernel module not loaded")

// ProcfsReader reads the driver version and devices the kernel module
// exposes, without NVML
type ProcfsReader struct {
	procRoot string
	devRoot  string
}

// NewProcfsReader reads from the standard /proc and /dev locations
func NewProcfsReader() *ProcfsReader {
	return NewProcfsReaderAt(DefaultProcRoot, DefaultDevRoot)
}

// NewProcfsReaderAt reads from alternative roots (for testing)
func NewProcfsReaderAt(procRoot, devRoot string) *ProcfsReader {
	return &ProcfsReader{procRoot: procRoot, devRoot: devRoot}
}

// Read builds a report from <procRoot>/version and <procRoot>/gpus/*/information.
// When the per-GPU files are absent the /dev/nvidiaN nodes are counted instead.
func (p *ProcfsReader) Read() (GPUReport, error) {
	report := GPUReport{GPUs: make([]GPUInfo, 0), Source: SourceProcfs}

	data, err := os.ReadFile(filepath.Join(p.procRoot, "version")) // #nosec G304 -- fixed procfs path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return report, ErrModuleNotLoaded
		}
		return report, fmt.Errorf("failed to read driver version: %w", err)
	}
	report.DriverVersion = ParseDriverVersion(string(data))
	if report.DriverVersion == "" {
		return report, fmt.Errorf("unrecognised %s/version contents", p.procRoot)
	}

	gpus, err := p.readGPUs()
	if err != nil {
		return report, err
	}
	if len(gpus) == 0 {
		gpus = p.deviceNodes()
	}
	report.GPUs = gpus
	return report, nil
}

func (p *ProcfsReader) readGPUs() ([]GPUInfo, error) {
	entries, err := os.ReadDir(filepath.Join(p.procRoot, "gpus"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list GPUs: %w", err)
	}

	gpus := make([]GPUInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(p.procRoot, "gpus", entry.Name(), "information")
		data, err := os.ReadFile(path) // #nosec G304 -- path is under the procfs root
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		info := parseInformation(data)
		info.Index = len(gpus)
		gpus = append(gpus, info)
	}
	return gpus, nil
}

func (p *ProcfsReader) deviceNodes() []GPUInfo {
	entries, err := os.ReadDir(p.devRoot)
	if err != nil {
		return make([]GPUInfo, 0)
	}

	var minors []int
	for _, entry := range entries {
		m := deviceNodePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		minors = append(minors, n)
	}
	sort.Ints(minors)

	gpus := make([]GPUInfo, 0, len(minors))
	for _, n := range minors {
		gpus = append(gpus, GPUInfo{Name: fmt.Sprintf("nvidia%d", n), Index: n})
	}
	return gpus
}

// ParseDriverVersion extracts "535.183.01" from the NVRM line of /proc/driver/nvidia/version
func ParseDriverVersion(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, "NVRM version:") {
			continue
		}
		for _, field := range strings.Fields(line) {
			if driverVersionPattern.MatchString(field) {
				return field
			}
		}
	}
	return ""
}

// parseInformation reads the "Key: value" lines of a gpus/*/information file
func parseInformation(data []byte) GPUInfo {
	var info GPUInfo
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Model":
			info.Name = value
		case "GPU UUID":
			info.UUID = value
		}
	}
	return info
}
