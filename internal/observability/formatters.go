// Package observability provides boxed summaries for CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/application-tracker/internal/crawler"
	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/tracker"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// barWidth is the longest bar drawn in a histogram
	barWidth = 24
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// PrintDashboard outputs headline stats, the stage breakdown, monthly velocity and the
// most recent applications.
func (p *Printer) PrintDashboard(d *tracker.Dashboard) {
	if d == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total applications: %d\n", d.Stats.Total))
	sb.WriteString(fmt.Sprintf("Interviews:         %d\n", d.Stats.Interviews))
	sb.WriteString(fmt.Sprintf("Offers:             %d\n", d.Stats.Offers))
	sb.WriteString(fmt.Sprintf("Response rate:      %.1f%%", d.Stats.ResponseRate))
	p.printBox("APPLICATION SUMMARY", sb.String())

	if len(d.StageBreakdown) > 0 {
		p.PrintStageBreakdown(d.StageBreakdown)
	}
	if len(d.MonthlyVelocity) > 0 {
		p.PrintMonthlyVelocity(d.MonthlyVelocity)
	}
	if len(d.Recent) > 0 {
		p.PrintRecent(d.Recent)
	}
}

// PrintStageBreakdown outputs one bar per status, largest first.
func (p *Printer) PrintStageBreakdown(breakdown []db.StatusCount) {
	labels := make([]string, len(breakdown))
	counts := make([]int, len(breakdown))
	for i, sc := range breakdown {
		labels[i], counts[i] = sc.Status, sc.Count
	}
	p.printBox("BY STATUS", histogram(labels, counts))
}

// PrintMonthlyVelocity outputs one bar per month, oldest first.
func (p *Printer) PrintMonthlyVelocity(velocity []db.MonthCount) {
	labels := make([]string, len(velocity))
	counts := make([]int, len(velocity))
	for i, mc := range velocity {
		labels[i], counts[i] = mc.Month, mc.Count
	}
	p.printBox("APPLICATIONS PER MONTH", histogram(labels, counts))
}

// PrintRecent outputs the given applications one per line.
func (p *Printer) PrintRecent(apps []db.Application) {
	var sb strings.Builder
	for i, a := range apps {
		sb.WriteString(fmt.Sprintf("%s  %s / %s [%s]", a.AppliedDate, a.Company, a.Role, a.Status))
		if i < len(apps)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("RECENT APPLICATIONS", sb.String())
}

// PrintSyncResult outputs the counts of a crawl.
func (p *Printer) PrintSyncResult(target string, r crawler.Result) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source:   %s\n", target))
	sb.WriteString(fmt.Sprintf("Created:  %d\n", r.Created))
	sb.WriteString(fmt.Sprintf("Updated:  %d\n", r.Updated))
	sb.WriteString(fmt.Sprintf("Skipped:  %d (missing company, role or status)", r.Skipped))
	p.printBox("CRAWL RESULT", sb.String())
}

// histogram renders labelled bars scaled to the largest count.
func histogram(labels []string, counts []int) string {
	width, peak := 0, 0
	for i := range labels {
		width = max(width, utf8.RuneCountInString(labels[i]))
		peak = max(peak, counts[i])
	}
	width = min(width, 16)

	var sb strings.Builder
	for i := range labels {
		bar := 0
		if peak > 0 {
			bar = counts[i] * barWidth / peak
		}
		if counts[i] > 0 && bar == 0 {
			bar = 1
		}
		sb.WriteString(fmt.Sprintf("%-*s %s %d", width, truncate(labels[i], width), strings.Repeat("█", bar), counts[i]))
		if i < len(labels)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
