package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/report"
)

const (
	maxBarWidth      = 50
	sessionIDDisplay = 12
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle    = lipgloss.NewStyle().Width(24).Foreground(lipgloss.Color("#A0A0A0"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col > 0 {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		})
}

func line(w io.Writer, label, value string) {
	fmt.Fprintln(w, labelStyle.Render(label)+value)
}

func renderStatus(w io.Writer, s report.Summary, files, messages int) {
	fmt.Fprintln(w, titleStyle.Render("Cost status: "+s.Date))
	line(w, "Session files scanned", strconv.Itoa(files))
	line(w, "Total messages parsed", strconv.Itoa(messages))
	fmt.Fprintln(w)
	line(w, "Today's cost", report.FormatCost(s.TotalCostUSD))
	line(w, "Today's tokens", report.FormatTokens(s.TotalTokens))
	line(w, "Today's sessions", strconv.Itoa(s.SessionCount))
	line(w, "Today's API calls", strconv.Itoa(s.MessageCount))
}

// bar is one mark per ten cents.
func bar(cost float64) string {
	n := min(int(cost*10), maxBarWidth)
	if n <= 0 {
		return ""
	}
	return barStyle.Render(strings.Repeat("#", n))
}

func renderCostReport(w io.Writer, r report.CostReport, days int) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Cost report: last %d days", days)))

	total := 0.0
	for _, d := range r.Timeseries {
		total += d.CostUSD
	}
	fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("Daily costs (total: %s)", report.FormatCost(total))))
	for _, d := range r.Timeseries {
		fmt.Fprintf(w, "  %s  %10s  %s\n", d.Date, report.FormatCost(d.CostUSD), bar(d.CostUSD))
	}

	if len(r.Models) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("By model"))
		t := newTable("MODEL", "COST", "TOKENS", "CALLS")
		for _, m := range r.Models {
			t.Row(m.Model, report.FormatCost(m.CostUSD), report.FormatTokens(m.TotalTokens), strconv.Itoa(m.MessageCount))
		}
		fmt.Fprintln(w, t.Render())
	}

	if len(r.Projects) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("By project"))
		t := newTable("PROJECT", "COST", "SESSIONS", "CALLS")
		for _, p := range r.Projects {
			t.Row(p.Project, report.FormatCost(p.CostUSD), strconv.Itoa(p.SessionCount), strconv.Itoa(p.MessageCount))
		}
		fmt.Fprintln(w, t.Render())
	}

	if len(r.TopSessions) > 0 {
		fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("Top %d most expensive sessions", len(r.TopSessions))))
		t := newTable("SESSION", "COST", "PROJECT", "CALLS")
		for _, s := range r.TopSessions {
			id := s.SessionID
			if len(id) > sessionIDDisplay {
				id = id[:sessionIDDisplay] + "..."
			}
			t.Row(id, report.FormatCost(s.CostUSD), s.Project, strconv.Itoa(s.MessageCount))
		}
		fmt.Fprintln(w, t.Render())
	}
}

func renderAnomalies(w io.Writer, anomalies []report.Anomaly, threshold float64) {
	if len(anomalies) == 0 {
		fmt.Fprintln(w, "No anomalies detected.")
		return
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Cost anomalies (threshold: %.0f%% over rolling average)", threshold*100)))
	for _, a := range anomalies {
		marker := warningStyle.Render(" >")
		if a.Severity == models.SeverityCritical {
			marker = criticalStyle.Render("!!")
		}
		subject := a.Date
		if a.Project != "" {
			subject += "  " + a.Project
		}
		fmt.Fprintf(w, "  %s %s  actual: %s  expected: %s  (+%.1f%%)\n",
			marker, subject, report.FormatCost(a.ActualCost), report.FormatCost(a.ExpectedCost), a.PctOver)
	}
}

func renderSync(w io.Writer, out syncOutput) {
	if out.Deleted != nil {
		fmt.Fprintf(w, "Deleted %d old events.\n", *out.Deleted)
	}
	if out.Sent == 0 {
		fmt.Fprintln(w, "No new events to sync.")
	} else {
		fmt.Fprintf(w, "Synced %d events in %d batches.\n", out.Sent, out.Batches)
	}
	fmt.Fprintln(w, mutedStyle.Render("Device: "+out.DeviceID))
}
