package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/soc2scan/metrics"
)

func TestRegistryCollectsCounters(t *testing.T) {
	r := metrics.New()
	r.FilesScanned.WithLabelValues("regex_only").Add(3)
	r.ViolationsFound.WithLabelValues("high").Add(2)
	r.LLMCalls.Inc()
	r.LLMCostUSD.Add(0.05)
	r.ScanDuration.Observe(1.5)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	var buf strings.Builder
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		require.NoError(t, enc.Encode(mf))
	}

	out := buf.String()
	assert.Contains(t, out, "soc2scan_files_scanned_total")
	assert.Contains(t, out, "soc2scan_violations_found_total")
	assert.Contains(t, out, "soc2scan_llm_calls_total")
	assert.Contains(t, out, "soc2scan_llm_cost_usd_total")
	assert.Contains(t, out, "soc2scan_scan_duration_seconds")
}

func TestNewRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.New()
		metrics.New()
	})
}
