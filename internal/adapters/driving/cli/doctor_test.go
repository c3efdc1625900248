package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

func TestDoctorCmd_Use(t *testing.T) {
	assert.Equal(t, "doctor", doctorCmd.Use)
}

func TestDoctorCmd_AllChecksPass(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"doctor"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "All checks passed")
	assert.Contains(t, buf.String(), "embedding endpoint")
}

func TestDoctorCmd_FailingCheckReturnsError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	diagnostics = &mockDiagnostics{results: []driving.CheckResult{
		{Name: "configuration", Passed: true, Detail: "valid"},
		{Name: "search service", Passed: false, Detail: "connection refused"},
	}}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"doctor"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, buf.String(), "FAIL")
	assert.Contains(t, buf.String(), "connection refused")
}
