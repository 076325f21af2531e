package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncBuildOutcome(OutcomeSuccess)
	pr.IncFileResult(ResultWritten)
	pr.ObserveScriptDuration("upcase", 20*time.Millisecond, true)
	pr.IncScriptUnresolved("missing")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 5)
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncFileResult(ResultSkipped)
	pr.IncFileResult(ResultSkipped)

	path := filepath.Join(t.TempDir(), "incscript.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `incscript_file_results_total{result="skipped"} 2`), string(data))
}

func TestPrometheusRecorder_NilReceiverIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncFileResult(ResultWritten)
	pr.ObserveScriptDuration("x", time.Second, false)
}
