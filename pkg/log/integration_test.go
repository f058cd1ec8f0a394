package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

func TestLoggerInterface(t *testing.T) {
	testLogger := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", SuggestionKey, "lower the learning rate")
	testLogger.Error("error message", fmt.Errorf("test error"), ErrorTypeKey, "TestError")

	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}

	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) {
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrAttrKey, "test error") {
		t.Error("Expected error field not found")
	}
}

func TestLoggerWith(t *testing.T) {
	testLogger := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(
		ModelNameKey, "GDRegressor",
		ComponentKey, "linear.gd",
	)
	contextLogger.Info("contextual message", OperationKey, OperationFit)

	if !testLogger.ContainsField(ModelNameKey, "GDRegressor") {
		t.Error("Model name context not found")
	}
	if !testLogger.ContainsField(ComponentKey, "linear.gd") {
		t.Error("Component context not found")
	}
	if !testLogger.ContainsField(OperationKey, OperationFit) {
		t.Error("Operation field not found")
	}
}

func TestLoggerEnabled(t *testing.T) {
	testLogger := NewTestLogger(LevelInfo)
	ctx := context.Background()

	if !testLogger.Enabled(ctx, LevelInfo) {
		t.Error("Logger should be enabled for Info level")
	}
	if !testLogger.Enabled(ctx, LevelError) {
		t.Error("Logger should be enabled for Error level")
	}
	if testLogger.Enabled(ctx, LevelDebug) {
		t.Error("Logger should not be enabled for Debug level")
	}

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	if testLogger.ContainsMessage("this should not appear") {
		t.Error("Debug message should not appear when level is Info")
	}
	if !testLogger.ContainsMessage("this should appear") {
		t.Error("Info message should appear when level is Info")
	}
}

func TestTrainingAttributes(t *testing.T) {
	testLogger := NewTestLogger(LevelInfo)

	testLogger.Info("Training completed",
		OperationKey, OperationFit,
		PhaseKey, PhaseTraining,
		SamplesKey, 24,
		IterationKey, 812,
		LossKey, 0.25,
		Theta0Key, 8499.6,
	)

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatalf("Failed to parse log entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}

	expectedFields := map[string]interface{}{
		OperationKey: OperationFit,
		PhaseKey:     PhaseTraining,
		SamplesKey:   24.0,
		IterationKey: 812.0,
		LossKey:      0.25,
		Theta0Key:    8499.6,
		"level":      "info",
	}
	for key, expectedValue := range expectedFields {
		if actualValue, exists := entries[0][key]; !exists {
			t.Errorf("Expected field %s not found", key)
		} else if actualValue != expectedValue {
			t.Errorf("Field %s: expected %v, got %v", key, expectedValue, actualValue)
		}
	}
}

func TestErrorIncludesStacktrace(t *testing.T) {
	testLogger := NewTestLogger(LevelInfo)

	err := errors.NewDegenerateInputError("price", 100)
	testLogger.Error("Training failed", err)

	entries, perr := testLogger.GetLogEntries()
	if perr != nil {
		t.Fatalf("Failed to parse log entries: %v", perr)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	if entries[0][ErrAttrKey] != err.Error() {
		t.Errorf("error field = %v, want %q", entries[0][ErrAttrKey], err.Error())
	}
	detail, ok := entries[0][ErrAttrKey+"_detail"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected structured error detail, got %v", entries[0])
	}
	if detail["type"] != "DegenerateInputError" {
		t.Errorf("detail type = %v", detail["type"])
	}
}

func TestOddFieldCount(t *testing.T) {
	testLogger := NewTestLogger(LevelInfo)
	testLogger.Info("odd", "dangling")

	if !testLogger.ContainsField("!BADKEY", "dangling") {
		t.Errorf("expected dangling value under !BADKEY, got %s", testLogger.String())
	}
}

func TestProviderWarningsGoThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	errors.Warn(errors.NewConvergenceWarning("GDRegressor", 5, ""))

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("warning was not a JSON line: %q (%v)", line, err)
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["type"] != "ConvergenceWarning" {
		t.Errorf("type = %v, want ConvergenceWarning", entry["type"])
	}
}

func TestGetLoggerWithName(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	GetLoggerWithName("store").Info("saved")

	if !strings.Contains(buf.String(), `"ml.component":"store"`) {
		t.Errorf("component name missing: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
