package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/thesavant42/sqlihunter/internal/models"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBorder)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(ColorInfo).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	rowStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	failedRowStyle = lipgloss.NewStyle().
			Foreground(ColorBorder)

	successStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(ColorAccentDim).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorBorder).
			Bold(true)
)

const banner = `
 ____   ___  _     _ _   _             _
/ ___| / _ \| |   (_) | | |_   _ _ __ | |_ ___ _ __
\___ \| | | | |   | | |_| | | | | '_ \| __/ _ \ '__|
 ___) | |_| | |___| |  _  | |_| | | | | ||  __/ |
|____/ \__\_\_____|_|_| |_|\__,_|_| |_|\__\___|_|
`

// PrintBanner prints the startup banner
func PrintBanner(w io.Writer) {
	fmt.Fprintln(w, bannerStyle.Render(strings.TrimPrefix(banner, "\n")))
	fmt.Fprintln(w, subtitleStyle.Render("Wayback query-parameter harvester for sqlmap"))
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintln(w, successStyle.Render(message))
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintln(w, warningStyle.Render("Warning: "+message))
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+message))
}

// PrintCommand prints a scanner command for manual use
func PrintCommand(w io.Writer, domain, command string) {
	fmt.Fprintln(w, HintStyle.Render("Scanner command for ")+AccentStyle.Render(domain))
	fmt.Fprintln(w, CommandStyle.Render(command))
}

// tableWriter renders fixed-width bordered tables.
//
// This is a CLI report (non-interactive), so the table structure is built
// with string formatting. Lipgloss only colors the finished lines.
type tableWriter struct {
	w         io.Writer
	widths    []int
	separator string
}

func newTableWriter(w io.Writer, widths []int) *tableWriter {
	totalWidth := 2 // left border
	for _, width := range widths {
		totalWidth += width + 3 // column width + " │ " separator
	}
	totalWidth -= 1 // last column has no trailing separator

	return &tableWriter{
		w:         w,
		widths:    widths,
		separator: strings.Repeat("─", totalWidth-2),
	}
}

func (t *tableWriter) top()    { fmt.Fprintln(t.w, TableBorderStyle.Render("┌"+t.separator+"┐")) }
func (t *tableWriter) middle() { fmt.Fprintln(t.w, TableBorderStyle.Render("├"+t.separator+"┤")) }
func (t *tableWriter) bottom() { fmt.Fprintln(t.w, TableBorderStyle.Render("└"+t.separator+"┘")) }

func (t *tableWriter) row(style lipgloss.Style, cells ...string) {
	var b strings.Builder
	b.WriteString("│")
	for i, width := range t.widths {
		cell := ""
		if i < len(cells) {
			cell = truncate(cells[i], width)
		}
		fmt.Fprintf(&b, " %-*s │", width, cell)
	}
	fmt.Fprintln(t.w, style.Render(b.String()))
}

// truncate shortens s to width runes, marking the cut with "..."
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// PrintRunSummary prints one row per processed domain
func PrintRunSummary(w io.Writer, runs []models.ScanRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, subtitleStyle.Render("Run summary: No domains processed"))
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Run Summary"))

	t := newTableWriter(w, []int{28, 12, 8, 8, 40})
	t.top()
	t.row(headerStyle, "Domain", "Status", "Raw", "Clean", "Output")
	t.middle()

	succeeded := 0
	for _, r := range runs {
		style := rowStyle
		if r.Status.Succeeded() {
			succeeded++
		} else {
			style = failedRowStyle
		}

		out := r.OutputDir
		if out == "" {
			out = "-"
		}
		t.row(style, r.Domain, string(r.Status), fmt.Sprintf("%d", r.RawCount), fmt.Sprintf("%d", r.CleanCount), out)
	}
	t.bottom()

	fmt.Fprintln(w, HintStyle.Render(fmt.Sprintf("%d of %d domains completed", succeeded, len(runs))))
	fmt.Fprintln(w)
}

// PrintRunHistory prints runs from the ledger, newest first
func PrintRunHistory(w io.Writer, runs []models.ScanRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, subtitleStyle.Render("Run history: No data"))
		return
	}

	fmt.Fprintln(w, TitleStyle.Render("Run History"))

	t := newTableWriter(w, []int{5, 19, 28, 12, 7, 7, 3})
	t.top()
	t.row(headerStyle, "ID", "Started", "Domain", "Status", "Raw", "Clean", "Ran")
	t.middle()
	for _, r := range runs {
		style := rowStyle
		if !r.Status.Succeeded() {
			style = failedRowStyle
		}
		ran := "no"
		if r.Executed {
			ran = "yes"
		}
		t.row(style,
			fmt.Sprintf("%d", r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Domain,
			string(r.Status),
			fmt.Sprintf("%d", r.RawCount),
			fmt.Sprintf("%d", r.CleanCount),
			ran,
		)
	}
	t.bottom()
	fmt.Fprintln(w)
}

// PrintDomainStats prints per-domain ledger totals
func PrintDomainStats(w io.Writer, stats []models.DomainRunStats) {
	if len(stats) == 0 {
		return
	}

	fmt.Fprintln(w, TitleStyle.Render("Domains"))

	t := newTableWriter(w, []int{28, 6, 19, 11})
	t.top()
	t.row(headerStyle, "Domain", "Runs", "Last Run", "Candidates")
	t.middle()
	for _, s := range stats {
		t.row(rowStyle,
			s.Domain,
			fmt.Sprintf("%d", s.RunCount),
			s.LastRunAt.Local().Format(time.DateTime),
			fmt.Sprintf("%d", s.TotalClean),
		)
	}
	t.bottom()
	fmt.Fprintln(w)
}

// GenerateMarkdownReport renders the run ledger as a markdown document
func GenerateMarkdownReport(stats []models.DomainRunStats, runs []models.ScanRun) string {
	var sb strings.Builder

	sb.WriteString("# SQLiHunter Run History\n\n")
	sb.WriteString(fmt.Sprintf("**Domains:** %d  \n", len(stats)))
	sb.WriteString(fmt.Sprintf("**Runs:** %d\n\n", len(runs)))

	sb.WriteString("## Domains\n\n")
	if len(stats) == 0 {
		sb.WriteString("No data\n\n")
	} else {
		sb.WriteString("| Domain | Runs | Last Run | Candidates |\n")
		sb.WriteString("|--------|------|----------|------------|\n")
		for _, s := range stats {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %d |\n",
				s.Domain, s.RunCount, s.LastRunAt.UTC().Format(time.RFC3339), s.TotalClean))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Runs\n\n")
	if len(runs) == 0 {
		sb.WriteString("No data\n")
		return sb.String()
	}

	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("### #%d %s (%s)\n\n", r.ID, r.Domain, r.Status))
		sb.WriteString(fmt.Sprintf("- **Started:** %s\n", r.StartedAt.UTC().Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("- **URLs:** %d archived, %d candidates\n", r.RawCount, r.CleanCount))
		if r.OutputDir != "" {
			sb.WriteString(fmt.Sprintf("- **Output:** `%s`\n", r.OutputDir))
		}
		if r.Error != "" {
			sb.WriteString(fmt.Sprintf("- **Error:** %s\n", r.Error))
		}
		if r.Command != "" {
			sb.WriteString(fmt.Sprintf("\n```sh\n%s\n```\n", r.Command))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
