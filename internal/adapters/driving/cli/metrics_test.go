package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/metrics"
)

func TestMetricsCmd_ShowsSummary(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	collector.Record(metrics.QueryRecord{
		Question:   "how much leave?",
		Timestamp:  time.Now(),
		TotalTime:  time.Second,
		TokensUsed: 560,
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"metrics"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "queries:           1")
	assert.Contains(t, buf.String(), "tokens used:       560")
}

func TestMetricsExportCmd_WritesFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	collector.Record(metrics.QueryRecord{Question: "q", Timestamp: time.Now(), TokensUsed: 10})

	out := filepath.Join(t.TempDir(), "metrics.json")
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"metrics", "export", "--out", out})
	defer func() {
		rootCmd.SetArgs(nil)
		metricsOut = "metrics.json"
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_queries"`)
}
