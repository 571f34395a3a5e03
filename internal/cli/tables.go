package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/roach88/combatlens/internal/analysis"
	"github.com/roach88/combatlens/internal/metrics"
	"github.com/roach88/combatlens/internal/store"
	"github.com/roach88/combatlens/internal/suggest"
)

func newTable(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true
	if title != "" {
		tw.SetTitle(title)
	}
	return tw
}

// writeReport renders findings, the checklist and module health.
func writeReport(w io.Writer, label string, r *analysis.Report) {
	fmt.Fprintf(w, "%s (fingerprint %s)\n", label, shortPrint(r.Fingerprint))

	findings := newTable(w, "Findings")
	findings.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, WidthMax: 80},
		{Number: 5, WidthMax: 60},
	})
	findings.AppendHeader(table.Row{"Severity", "Module", "Value", "Finding", "Why"})
	ordered := append([]suggest.Finding(nil), r.Findings...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Severity > ordered[j].Severity })
	for _, f := range ordered {
		findings.AppendRow(table.Row{strings.ToUpper(f.Severity.String()), f.Module, f.Value, f.Content, f.Why})
	}
	if len(ordered) == 0 {
		findings.AppendRow(table.Row{"-", "(no findings)", "-", "-", "-"})
	}
	findings.Render()

	if len(r.Checklist) > 0 {
		checklist := newTable(w, "Checklist")
		checklist.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
		})
		checklist.AppendHeader(table.Row{"Module", "Rule", "Percent", "Target", "Result"})
		for _, rule := range r.Checklist {
			result := "FAIL"
			if rule.Passed() {
				result = "PASS"
			}
			checklist.AppendRow(table.Row{
				rule.Module,
				rule.Name,
				fmt.Sprintf("%.1f%%", suggest.Clamp(rule.Percent())),
				fmt.Sprintf("%.0f%%", rule.Target),
				result,
			})
		}
		checklist.Render()
	}

	modules := newTable(w, "Modules")
	modules.AppendHeader(table.Row{"Module", "Status", "Detail"})
	for _, m := range r.Modules {
		modules.AppendRow(table.Row{m.Handle, m.Status, m.Error})
	}
	modules.Render()
}

func writeRuns(w io.Writer, runs []store.RunRecord) {
	tw := newTable(w, "")
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	tw.AppendHeader(table.Row{"Run ID", "Created", "Encounter", "Job", "Events", "Findings", "Unhealthy", "Report"})
	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			r.Encounter,
			r.Job,
			r.EventCount,
			r.Findings,
			r.Unhealthy,
			shortPrint(r.ReportFingerprint),
		})
	}
	if len(runs) == 0 {
		tw.AppendRow(table.Row{"-", "-", "(no runs)", "-", 0, 0, 0, "-"})
	}
	tw.Render()
}

func writeFindingHits(w io.Writer, hits []store.FindingHit) {
	tw := newTable(w, "Stored findings")
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight},
		{Number: 7, WidthMax: 80},
	})
	tw.AppendHeader(table.Row{"Run ID", "Created", "Job", "Severity", "Module", "Value", "Finding"})
	for _, h := range hits {
		tw.AppendRow(table.Row{
			h.RunID,
			h.CreatedAt.Format(time.RFC3339),
			h.Job,
			strings.ToUpper(h.Severity),
			h.Module,
			h.Value,
			h.Content,
		})
	}
	if len(hits) == 0 {
		tw.AppendRow(table.Row{"-", "-", "-", "-", "(no findings)", "-", "-"})
	}
	tw.Render()
}

func writeModules(w io.Writer, job string, rows []moduleRow) {
	tw := newTable(w, job)
	tw.AppendHeader(table.Row{"#", "Module", "Depends on"})
	for i, row := range rows {
		tw.AppendRow(table.Row{i + 1, row.Handle, strings.Join(row.Dependencies, ", ")})
	}
	tw.Render()
}

func writeSamples(w io.Writer, samples []metrics.Sample) {
	tw := newTable(w, "Metrics")
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	tw.AppendHeader(table.Row{"Metric", "Labels", "Value"})
	for _, s := range samples {
		tw.AppendRow(table.Row{s.Name, formatLabels(s.Labels), s.Value})
	}
	tw.Render()
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + labels[k]
	}
	return strings.Join(parts, ",")
}

func shortPrint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
