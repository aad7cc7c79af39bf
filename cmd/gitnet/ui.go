package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"gitnet/internal/model"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleHash    = lipgloss.NewStyle().Foreground(colorYellow)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleAdded   = lipgloss.NewStyle().Foreground(colorGreen)
	styleRemoved = lipgloss.NewStyle().Foreground(colorRed)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleCurrent = lipgloss.NewStyle().Bold(true)
)

// branchStyle colors a branch label with the branch's own graph color.
func branchStyle(color string) lipgloss.Style {
	if color == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// relativeTime renders a unix timestamp relative to now.
func relativeTime(ts int64, now time.Time) string {
	d := now.Sub(time.Unix(ts, 0))
	switch {
	case d < 0:
		return "in the future"
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	case d < 365*24*time.Hour:
		return plural(int(d/(30*24*time.Hour)), "month") + " ago"
	default:
		return plural(int(d/(365*24*time.Hour)), "year") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// commitLine is the one-line form used by `gitnet log`.
func commitLine(c model.Commit, now time.Time) string {
	var b strings.Builder
	b.WriteString(styleHash.Render(c.ShortHash))
	if c.Branch != "" {
		b.WriteString(" ")
		b.WriteString(styleDim.Render("[" + c.Branch + "]"))
	}
	for _, tag := range c.Tags {
		b.WriteString(" ")
		b.WriteString(styleTitle.Render("(" + tag + ")"))
	}
	b.WriteString(" ")
	b.WriteString(c.Subject)
	b.WriteString(" ")
	b.WriteString(styleDim.Render(fmt.Sprintf("- %s, %s", c.Author.Name, relativeTime(c.Timestamp, now))))
	return b.String()
}

// fileStateLabel is a short fixed-width marker for a working-tree entry.
func fileStateLabel(s model.FileState) string {
	switch s {
	case model.StateAdded:
		return "A"
	case model.StateModified:
		return "M"
	case model.StateDeleted:
		return "D"
	case model.StateRenamed:
		return "R"
	case model.StateCopied:
		return "C"
	case model.StateTypeChange:
		return "T"
	case model.StateUntracked:
		return "?"
	case model.StateConflicted:
		return "U"
	default:
		return " "
	}
}

func fileChangeLabel(s model.FileChangeStatus) string {
	switch s {
	case model.FileAdded:
		return "A"
	case model.FileDeleted:
		return "D"
	case model.FileRenamed:
		return "R"
	case model.FileCopied:
		return "C"
	default:
		return "M"
	}
}

// printDiffText colors unified diff lines by their leading marker.
func printDiffText(w io.Writer, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprintln(w, styleCurrent.Render(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(w, styleAdded.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(w, styleRemoved.Render(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprintln(w, styleTitle.Render(line))
		default:
			fmt.Fprintln(w, line)
		}
	}
}
