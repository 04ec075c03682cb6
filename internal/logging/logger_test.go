package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LevelInfo)

	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}

	if logger.minLevel != LevelInfo {
		t.Errorf("Expected minLevel to be %s, got %s", LevelInfo, logger.minLevel)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogger_ShouldLog(t *testing.T) {
	tests := []struct {
		name     string
		minLevel Level
		logLevel Level
		want     bool
	}{
		{"debug logs when min is debug", LevelDebug, LevelDebug, true},
		{"info logs when min is debug", LevelDebug, LevelInfo, true},
		{"error logs when min is debug", LevelDebug, LevelError, true},
		{"debug does not log when min is info", LevelInfo, LevelDebug, false},
		{"info logs when min is info", LevelInfo, LevelInfo, true},
		{"error logs when min is info", LevelInfo, LevelError, true},
		{"info does not log when min is error", LevelError, LevelInfo, false},
		{"error logs when min is error", LevelError, LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.minLevel)
			got := logger.shouldLog(tt.logLevel)
			if got != tt.want {
				t.Errorf("shouldLog() = %v, want %v", got, tt.want)
			}
		})
	}
}

// logLine is the shape of one JSON log line
type logLine struct {
	Timestamp string                 `json:"ts"`
	Level     Level                  `json:"level"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Payload   map[string]interface{} `json:"payload"`
}

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelInfo, &buf)
	payload := map[string]interface{}{
		"package": "nvidia-driver",
		"count":   2,
	}

	logger.Log(LevelInfo, "step.apply.start", "Applying step", payload)

	var event logLine
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("Failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if event.Level != LevelInfo {
		t.Errorf("Expected level %s, got %s", LevelInfo, event.Level)
	}

	if event.Type != "step.apply.start" {
		t.Errorf("Expected type 'step.apply.start', got %s", event.Type)
	}

	if event.Message != "Applying step" {
		t.Errorf("Expected message 'Applying step', got %s", event.Message)
	}

	if event.Payload["package"] != "nvidia-driver" {
		t.Errorf("Expected payload package to be 'nvidia-driver', got %v", event.Payload["package"])
	}

	if event.Timestamp == "" {
		t.Error("Expected timestamp to be set")
	}
}

func TestLogger_OmitsEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelInfo, &buf)

	logger.Info("run.start", "Run started", nil)

	if strings.Contains(buf.String(), "payload") {
		t.Errorf("Expected no payload field, got: %s", buf.String())
	}
}

func TestLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelError, &buf)
	logger.Error("step.failed", "Step failed", map[string]interface{}{"exit_code": 100})

	output := buf.String()
	for _, want := range []string{"step.failed", "Step failed", "100", `"level":"error"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelWarn, &buf)

	logger.Info("test.filtered", "Should not appear", nil)

	if strings.TrimSpace(buf.String()) != "" {
		t.Errorf("Expected no output for filtered log, got: %s", buf.String())
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.Info("noop", "nil logger must not panic", nil)
}

func TestNewFileLogger_CreatesDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "app", "run.log")
	logger, err := NewFileLogger(LevelInfo, logPath)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestFileLogger_LevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	logger, err := NewFileLogger(LevelWarn, logPath)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}

	logger.Debug("test.debug", "Debug message", nil)
	logger.Info("test.info", "Info message", nil)
	logger.Warn("test.warn", "Warn message", nil)
	logger.Error("test.error", "Error message", nil)

	if closeErr := logger.Close(); closeErr != nil {
		t.Fatalf("Failed to close logger: %v", closeErr)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	contentStr := string(content)

	if strings.Contains(contentStr, "test.debug") {
		t.Error("Debug event was logged despite LevelWarn filter")
	}
	if strings.Contains(contentStr, "test.info") {
		t.Error("Info event was logged despite LevelWarn filter")
	}
	if !strings.Contains(contentStr, "test.warn") {
		t.Error("Warn event was not logged")
	}
	if !strings.Contains(contentStr, "test.error") {
		t.Error("Error event was not logged")
	}
}

func TestFileLogger_Append(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")

	for _, eventType := range []string{"test.first", "test.second"} {
		logger, err := NewFileLogger(LevelInfo, logPath)
		if err != nil {
			t.Fatalf("Failed to create file logger: %v", err)
		}
		logger.Info(eventType, "message", nil)
		if closeErr := logger.Close(); closeErr != nil {
			t.Fatalf("Failed to close logger: %v", closeErr)
		}
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d: %s", len(lines), content)
	}
	if !strings.Contains(lines[1], "test.second") {
		t.Error("Second event was not appended")
	}
}
