package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"squeeze/internal/processor"
	"squeeze/internal/report"
)

type SummaryRow struct {
	Label string
	Value string
}

// SummaryRows turns a run summary into table rows.
func SummaryRows(s processor.Summary) []SummaryRow {
	rows := []SummaryRow{
		{Label: "Files", Value: fmt.Sprintf("%d", s.Total)},
		{Label: "Compressed", Value: fmt.Sprintf("%d", s.Succeeded)},
		{Label: "Failed", Value: fmt.Sprintf("%d", s.Failed)},
	}
	if s.Cancelled > 0 {
		rows = append(rows, SummaryRow{Label: "Cancelled", Value: fmt.Sprintf("%d", s.Cancelled)})
	}
	return append(rows, SummaryRow{Label: "Space saved", Value: FormatBytes(s.BytesSaved)})
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
		if len(row.Value) > valueWidth {
			valueWidth = len(row.Value)
		}
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value))
		lines = append(lines, line)
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// RenderIssues lists the files behind every error and warning, errors first.
// It returns an empty string when the run was clean.
func RenderIssues(errs map[processor.ErrorKind][]report.Entry, warnings map[processor.Warning][]report.Entry) string {
	var lines []string

	errKinds := make([]processor.ErrorKind, 0, len(errs))
	for k := range errs {
		errKinds = append(errKinds, k)
	}
	sort.Slice(errKinds, func(i, j int) bool { return errKinds[i] < errKinds[j] })
	for _, k := range errKinds {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("%s (%d)", k, len(errs[k]))))
		for _, e := range errs[k] {
			line := "  - " + e.Path
			if e.Err != nil {
				line += dimStyle.Render(": " + e.Err.Error())
			}
			lines = append(lines, line)
		}
	}

	warnKinds := make([]processor.Warning, 0, len(warnings))
	for k := range warnings {
		warnKinds = append(warnKinds, k)
	}
	sort.Slice(warnKinds, func(i, j int) bool { return warnKinds[i] < warnKinds[j] })
	for _, k := range warnKinds {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("%s (%d)", k, len(warnings[k]))))
		for _, e := range warnings[k] {
			lines = append(lines, "  - "+e.Path)
		}
	}

	return strings.Join(lines, "\n")
}

// FormatBytes renders n with a binary unit. Negative values keep their sign.
func FormatBytes(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%s%d B", sign, n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s%.1f %ciB", sign, float64(n)/float64(div), "KMGTPE"[exp])
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	valueStyle = lipgloss.NewStyle().Foreground(Text).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(Failed).Bold(true)
)
