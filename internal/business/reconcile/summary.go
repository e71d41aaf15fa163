package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

// RenderSummary formats the final tabular summary printed after a run.
func RenderSummary(opts Options, res Result, reportPath string, elapsed time.Duration) string {
	stats := res.Stats
	mode := "LIVE"
	if opts.DryRun {
		mode = "DRY-RUN"
	}

	outcomes := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("OUTCOME", "RECORDS")
	for _, o := range model.Outcomes {
		outcomes.Row(string(o), strconv.Itoa(stats.ByOutcome[string(o)]))
	}

	writes := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("METRIC", "VALUE").
		Row("scanned", strconv.Itoa(stats.Scanned)).
		Row("pages", strconv.Itoa(stats.Pages)).
		Row("would update", strconv.Itoa(stats.WouldUpdate)).
		Row("updated", strconv.Itoa(stats.Updated)).
		Row("batches committed", strconv.Itoa(stats.BatchesCommitted)).
		Row("batches failed", strconv.Itoa(stats.BatchesFailed)).
		Row("lookup errors", strconv.Itoa(stats.LookupErrors)).
		Row("errors", strconv.Itoa(stats.Errors)).
		Row("cache hits/misses", fmt.Sprintf("%d/%d (%s)", stats.CacheHits, stats.CacheMisses, hitRatio(stats))).
		Row("duration", elapsed.Round(time.Millisecond).String())

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("=== Tenant Reconcile [%s] %s -> %s ===", mode, opts.Collection, opts.TargetTenant)))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, outcomes.Render(), "  ", writes.Render()))
	b.WriteString("\n")

	if opts.DryRun {
		b.WriteString(fmt.Sprintf("%d would be updated, %d errors\n", stats.WouldUpdate, stats.Errors))
	} else {
		b.WriteString(fmt.Sprintf("%d updated, %d already match, %d errors\n",
			stats.Updated, stats.ByOutcome[string(model.OutcomeMatchesTarget)], stats.Errors))
	}
	if stats.Errors > 0 {
		b.WriteString(failStyle.Render("needs attention: errors were recorded"))
	} else {
		b.WriteString(okStyle.Render("completed without errors"))
	}
	b.WriteString("\n")
	if reportPath != "" {
		b.WriteString(fmt.Sprintf("Report: %s\n", reportPath))
	}
	return b.String()
}

func hitRatio(stats model.RunStats) string {
	total := stats.CacheHits + stats.CacheMisses
	if total == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%% hit", float64(stats.CacheHits)*100/float64(total))
}
