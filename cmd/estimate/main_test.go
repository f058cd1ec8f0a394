package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithFlag(t *testing.T) {
	thetas := filepath.Join(t.TempDir(), "thetas.json")
	require.NoError(t, os.WriteFile(thetas, []byte(`{"theta0": 8000, "theta1": -0.02}`), 0o600))

	var out bytes.Buffer
	err := run([]string{"-thetas", thetas, "-mileage", "50000", "-log-level", "error"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Loaded theta0 = 8000, theta1 = -0.02")
	assert.Contains(t, out.String(), "Estimated price: 7000\n")
}

func TestRunPromptsAndCreatesDefault(t *testing.T) {
	thetas := filepath.Join(t.TempDir(), "thetas.json")

	var out bytes.Buffer
	err := run([]string{"-thetas", thetas, "-log-level", "error"}, strings.NewReader("42000\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "not found. Created a default one")
	assert.Contains(t, out.String(), "Enter mileage: ")
	assert.Contains(t, out.String(), "Estimated price: 0\n")

	raw, err := os.ReadFile(thetas)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theta0":0,"theta1":0}`, string(raw))
}

func TestRunInvalidInput(t *testing.T) {
	thetas := filepath.Join(t.TempDir(), "thetas.json")

	err := run([]string{"-thetas", thetas, "-log-level", "error"}, strings.NewReader("a lot\n"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunCorruptArtifactUsesDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed JSON", "not json"},
		{"missing field", `{"theta1": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thetas := filepath.Join(t.TempDir(), "thetas.json")
			require.NoError(t, os.WriteFile(thetas, []byte(tt.content), 0o600))

			var out bytes.Buffer
			err := run([]string{"-thetas", thetas, "-mileage", "50000", "-log-level", "error"}, strings.NewReader(""), &out)
			require.NoError(t, err)
			assert.Contains(t, out.String(), "is invalid. Using default coefficients")
			assert.Contains(t, out.String(), "Loaded theta0 = 0, theta1 = 0")
			assert.Contains(t, out.String(), "Estimated price: 0\n")

			raw, err := os.ReadFile(thetas)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(raw))
		})
	}
}
