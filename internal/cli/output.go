package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/randalmurphal/repoback/internal/manifest"
	"github.com/randalmurphal/repoback/internal/orchestrator"
)

// styles are the table styles.
type styles struct {
	Header lipgloss.Style
	OK     lipgloss.Style
	Failed lipgloss.Style
	Subtle lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{Header: plain, OK: plain, Failed: plain, Subtle: plain}
	}
	return styles{
		Header: lipgloss.NewStyle().Bold(true),
		OK:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Failed: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Subtle: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// useColor reports whether w is a terminal and color was not disabled.
func useColor(w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// resultJSON is the JSON shape of an EntityResult.
type resultJSON struct {
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	Processed  int    `json:"processed"`
	Written    int    `json:"written"`
	Skipped    int    `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func printResults(w io.Writer, op string, results []orchestrator.EntityResult) error {
	if jsonOut {
		out := struct {
			Operation string       `json:"operation"`
			Success   bool         `json:"success"`
			Entities  []resultJSON `json:"entities"`
		}{Operation: op, Success: orchestrator.Failures(results) == nil, Entities: make([]resultJSON, 0, len(results))}
		for _, r := range results {
			out.Entities = append(out.Entities, resultJSON{
				Name:       r.Name,
				Success:    r.Success,
				Processed:  r.Processed,
				Written:    r.Written,
				Skipped:    r.Skipped,
				DurationMS: r.Duration.Milliseconds(),
				Error:      r.Error(),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if quiet {
		return nil
	}

	st := newStyles(useColor(w))
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "FAILED"
		}
		rows = append(rows, []string{
			r.Name, status,
			fmt.Sprint(r.Processed), fmt.Sprint(r.Written), fmt.Sprint(r.Skipped),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	writeTable(w, st, []string{"ENTITY", "STATUS", "PROCESSED", "WRITTEN", "SKIPPED", "DURATION"}, rows, func(row []string, col int) lipgloss.Style {
		if col != 1 {
			return lipgloss.NewStyle()
		}
		if row[1] == "ok" {
			return st.OK
		}
		return st.Failed
	})

	for _, r := range results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "\n%s %s: %v\n", st.Failed.Render("✗"), r.Name, r.Err)
		}
	}
	return nil
}

func printSummaries(w io.Writer, found []manifest.Summary) error {
	if jsonOut {
		if found == nil {
			found = []manifest.Summary{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}

	if len(found) == 0 {
		_, _ = fmt.Fprintln(w, "No backups found.")
		return nil
	}

	st := newStyles(useColor(w))
	rows := make([][]string, 0, len(found))
	for _, s := range found {
		failed := ""
		if s.Failed > 0 {
			failed = fmt.Sprintf("%d failed", s.Failed)
		}
		rows = append(rows, []string{
			s.Repository,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprint(s.Entities),
			fmt.Sprint(s.Records),
			failed,
			s.Dir,
		})
	}
	writeTable(w, st, []string{"REPOSITORY", "CREATED", "ENTITIES", "RECORDS", "FAILED", "DIR"}, rows, func(row []string, col int) lipgloss.Style {
		switch col {
		case 4:
			return st.Failed
		case 5:
			return st.Subtle
		}
		return lipgloss.NewStyle()
	})
	return nil
}

// writeTable pads columns on their plain width, then styles each cell.
func writeTable(w io.Writer, st styles, header []string, rows [][]string, cellStyle func(row []string, col int) lipgloss.Style) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	pad := func(s string, width int) string {
		return s + strings.Repeat(" ", width-lipgloss.Width(s))
	}

	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = st.Header.Render(pad(h, widths[i]))
	}
	_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))

	for _, row := range rows {
		for i, cell := range row {
			cells[i] = cellStyle(row, i).Render(pad(cell, widths[i]))
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}
