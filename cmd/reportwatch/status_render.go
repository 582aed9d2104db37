package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"reportwatch/internal/ipc"
)

// tone colours a panel row by what the value means for the operator.
type tone int

const (
	toneNeutral tone = iota
	toneGood
	toneAttention
	toneBad
)

var toneStyles = map[tone]struct {
	mark   string
	colors text.Colors
}{
	toneNeutral:   {"", text.Colors{text.FgHiBlack}},
	toneGood:      {"✓ ", text.Colors{text.FgGreen}},
	toneAttention: {"! ", text.Colors{text.FgYellow}},
	toneBad:       {"✗ ", text.Colors{text.FgRed, text.Bold}},
}

const panelLabelWidth = 16

// panel writes the label/value blocks used by status, stats and attempt
// output. Sections after the first are separated by a blank line.
type panel struct {
	w        io.Writer
	color    bool
	sections int
}

func newPanel(w io.Writer) *panel {
	return &panel{w: w, color: shouldColorize(w)}
}

func (p *panel) section(title string) {
	title = strings.TrimSpace(title)
	if p.sections > 0 {
		fmt.Fprintln(p.w)
	}
	p.sections++
	rule := strings.Repeat("─", text.RuneWidthWithoutEscSequences(title))
	if p.color {
		title = text.Bold.Sprint(title)
	}
	fmt.Fprintln(p.w, title)
	fmt.Fprintln(p.w, rule)
}

func (p *panel) row(label string, t tone, value string) {
	if value == "" {
		value = "-"
	}
	style := toneStyles[t]
	value = style.mark + value
	if p.color && t != toneNeutral {
		value = style.colors.Sprint(value)
	}
	fmt.Fprintf(p.w, "  %-*s %s\n", panelLabelWidth, label, value)
}

func outcomeTone(out ipc.Outcome) tone {
	switch {
	case !out.Success:
		return toneBad
	case out.Skipped:
		return toneAttention
	default:
		return toneGood
	}
}

func armedTone(running bool) tone {
	if running {
		return toneGood
	}
	return toneAttention
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatClock(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
