package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/pypi-updater/pkg/pipeline"
	"github.com/matzehuels/pypi-updater/pkg/planner"
	"github.com/matzehuels/pypi-updater/pkg/report"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failures.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(w io.Writer, description, cmd string) {
	fmt.Fprintln(w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Summary
// =============================================================================

// printSummary writes the human-readable run summary: a table of every
// decision that is not "unchanged", the counts, and any problems.
func printSummary(w io.Writer, s *report.Summary, verbose bool) {
	pending := s.Mode == string(pipeline.ModeCheckOnly) || s.Mode == string(pipeline.ModeDryRun)
	if verbose {
		printKeyValue(w, "Run", s.RunID)
		printKeyValue(w, "Files", strconv.Itoa(len(s.Files)))
	}

	rows := decisionRows(s.Decisions, verbose, pending)
	switch {
	case len(s.Files) == 0 && len(s.Errors) == 0:
		printInfo(w, "No dependency files found")
	case len(rows) > 0:
		fmt.Fprintln(w, decisionTable(rows))
	default:
		printSuccess(w, "All %d packages are up to date", s.Counts.Total)
	}

	meta := []string{s.Mode, s.Duration().Round(time.Millisecond).String()}
	if s.Counts.Failed > 0 {
		meta = append(meta, fmt.Sprintf("%.0f%% succeeded", s.SuccessRate()*100))
	}
	fmt.Fprintln(w, countsLine(s.Counts, pending)+StyleDim.Render("  ("+strings.Join(meta, ", ")+")"))

	for _, f := range s.Files {
		if f.Written {
			printFile(w, f.Path)
		}
	}
	if c := s.Compile; c != nil && c.OK() {
		printSuccess(w, "Compiled lock files with %s", c.Script)
	} else if c != nil && !c.Missing {
		for _, line := range tail(c.Stderr, 5) {
			printDetail(w, "%s", line)
		}
	}
	for _, warn := range s.Warnings {
		printWarning(w, "%s", warn)
	}
	for _, e := range s.Errors {
		printError(w, "%s", formatError(e))
	}
	if pending && len(s.Updates()) > 0 {
		printNextStep(w, "Apply these updates", "pypi-updater --non-interactive")
	}
}

// summaryRow is a table row together with the action that colors it.
type summaryRow struct {
	action string
	cells  []string
}

func decisionRows(decisions []report.Decision, verbose, pending bool) []summaryRow {
	var rows []summaryRow
	for _, d := range decisions {
		if d.Action == string(planner.ActionUnchanged) && !verbose {
			continue
		}
		note := d.Reason
		if d.Error != "" {
			note = d.Error
		}
		action := d.Action
		if pending && action == string(planner.ActionApply) {
			action = "available"
		}
		rows = append(rows, summaryRow{
			action: d.Action,
			cells: []string{
				d.File + ":" + strconv.Itoa(d.Line),
				d.Package,
				orDash(d.Current),
				orDash(d.Latest),
				action,
				orDash(note),
			},
		})
	}
	return rows
}

func decisionTable(rows []summaryRow) string {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.cells
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("File", "Package", "Current", "Latest", "Action", "Note").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == -1 {
				return styleHeader.Padding(0, 1)
			}
			if row >= len(rows) {
				return base
			}
			switch col {
			case 0, 5:
				return base.Foreground(colorGray)
			case 3, 4:
				return base.Inherit(actionStyle(rows[row].action))
			}
			return base.Foreground(colorWhite)
		}).
		Render()
}

func actionStyle(action string) lipgloss.Style {
	switch action {
	case string(planner.ActionApply):
		return StyleSuccess
	case string(planner.ActionSkip):
		return StyleWarning
	case report.ActionFailed:
		return StyleError
	}
	return StyleDim
}

// countsLine renders "2 applied · 0 skipped · 0 failed".
func countsLine(c report.Counts, pending bool) string {
	applied := "applied"
	if pending {
		applied = "available"
	}
	parts := []string{
		StyleSuccess.Render(fmt.Sprintf("%d %s", c.Applied, applied)),
		StyleWarning.Render(fmt.Sprintf("%d skipped", c.Skipped)),
		StyleError.Render(fmt.Sprintf("%d failed", c.Failed)),
	}
	if c.Unchanged > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d unchanged", c.Unchanged)))
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

func formatError(e report.Error) string {
	var where []string
	if e.File != "" {
		where = append(where, e.File)
	}
	if e.Package != "" {
		where = append(where, e.Package)
	}
	msg := e.Message
	if len(where) > 0 {
		msg = strings.Join(where, " ") + ": " + msg
	}
	return msg + StyleDim.Render(" ["+e.Code+"]")
}

// tail returns the last n non-empty lines of s.
func tail(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
