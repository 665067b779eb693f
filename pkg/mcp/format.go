package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/argus-ai/argus/pkg/dispatch"
	"github.com/argus-ai/argus/pkg/models"
	"github.com/argus-ai/argus/pkg/registry"
)

// formatModels formats the model table as text.
func formatModels(all []registry.Model, defaultID string) string {
	if len(all) == 0 {
		return "No models configured."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-28s %-12s %-10s %10s\n",
		"ID", "Name", "Provider", "Status", "Cost/1K")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for _, m := range all {
		status := "available"
		if !m.Enabled {
			status = "no key"
		}
		id := m.ID
		if m.ID == defaultID {
			id += " *"
		}
		fmt.Fprintf(&b, "%-16s %-28s %-12s %-10s %9.4f$\n",
			id, m.Name, m.Provider, status, m.CostPer1K)
	}
	b.WriteString("\n* default model\n")
	return b.String()
}

// formatOutcome formats a dispatch outcome: the verdict for successful
// reviews, a per-model failure list otherwise.
func formatOutcome(out dispatch.Outcome) string {
	switch out.Status {
	case dispatch.StatusCacheHit:
		return fmt.Sprintf("[cached, model: %s]\n\n%s", out.Result.Model, out.Result.Verdict)
	case dispatch.StatusSuccess:
		return fmt.Sprintf("[model: %s, attempts: %d, latency: %s]\n\n%s",
			out.Result.Model, out.Attempts,
			out.Result.Latency.Round(time.Millisecond), out.Result.Verdict)
	}

	if len(out.Failures) == 0 {
		return "Review failed: no models are enabled. Set the credential " +
			"environment variables listed by the diagnose tool."
	}
	var b strings.Builder
	b.WriteString("Review failed on every model:\n")
	for _, f := range out.Failures {
		fmt.Fprintf(&b, "  %-16s %-10s %v\n", f.ModelID, f.Kind, f.Err)
	}
	b.WriteString("\nUse retry_with_fallback to retry, or diagnose to check credentials.")
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:   %d\n"+
		"  Hits:      %d\n"+
		"  Misses:    %d\n"+
		"  Evictions: %d\n"+
		"  Hit Rate:  %.1f%%\n",
		stats.TotalEntries, stats.Hits, stats.Misses, stats.Evictions, hitRate)
}

// modelCheck pairs a model with the result of its connectivity check.
type modelCheck struct {
	model  registry.Model
	status string
}

// formatDiagnostics formats credential status, per-model connectivity and
// recent failures as text.
func formatDiagnostics(checks []modelCheck, recent []dispatch.FailureRecord) string {
	var b strings.Builder
	b.WriteString("Models\n")
	for _, c := range checks {
		key := "key set"
		if !c.model.Enabled {
			key = "key MISSING"
		}
		fmt.Fprintf(&b, "  %-16s %-24s %-12s %s\n", c.model.ID, c.model.APIKeyEnv, key, c.status)
	}

	b.WriteString("\nRecent failures\n")
	if len(recent) == 0 {
		b.WriteString("  none\n")
		return b.String()
	}
	for _, r := range recent {
		fmt.Fprintf(&b, "  %-20s call=%s %-16s attempt=%d %-10s %s\n",
			r.Time.Format("2006-01-02 15:04:05"), r.Call, r.ModelID, r.Attempt, r.Kind, r.Detail)
	}
	return b.String()
}
