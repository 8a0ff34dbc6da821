package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/sim"
)

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Panel  lipgloss.Style
	Header lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Muted  lipgloss.Style
	Good   lipgloss.Style
	Warn   lipgloss.Style
	Bad    lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 2),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Title).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Border),
		Label: lipgloss.NewStyle().Foreground(t.Label).Width(18),
		Value: lipgloss.NewStyle().Foreground(t.Value).Bold(true),
		Muted: lipgloss.NewStyle().Foreground(t.Muted),
		Good:  lipgloss.NewStyle().Foreground(t.Good),
		Warn:  lipgloss.NewStyle().Foreground(t.Warning),
		Bad:   lipgloss.NewStyle().Foreground(t.Bad),
	}
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the last width values as block characters scaled
// between their min and max.
func (s Styles) Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return s.Muted.Render(strings.Repeat("─", max(width, 0)))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var b strings.Builder
	for _, v := range values {
		norm := (v - lo) / span
		idx := int(norm * float64(len(sparkChars)-1))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteRune(sparkChars[idx])
	}
	return s.Good.Render(b.String())
}

// ProgressBar renders frac in [0, 1] as a bar of the given width.
func (s Styles) ProgressBar(frac float64, width int) string {
	filled := int(frac * float64(width))
	filled = min(max(filled, 0), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if frac >= 1 {
		return s.Good.Render(bar)
	}
	return s.Warn.Render(bar)
}

func (s Styles) Separator(width int) string {
	return s.Muted.Render(strings.Repeat("─", width))
}

func (s Styles) row(label, value string) string {
	return s.Label.Render(label) + s.Value.Render(value) + "\n"
}

// Summary renders the outcome of a run: step counts, central values of
// the final profiles, the metrics and a sparkline of the time step.
func (s Styles) Summary(name string, result *sim.Result) string {
	var b strings.Builder
	b.WriteString(s.Header.Render(strings.ToUpper(name)) + "\n")
	if result == nil || len(result.Profiles) == 0 {
		b.WriteString(s.Muted.Render("no steps recorded") + "\n")
		return s.Panel.Render(b.String())
	}

	b.WriteString(s.row("t", fmt.Sprintf("%.4f s", result.Times[len(result.Times)-1])))
	b.WriteString(s.row("steps", fmt.Sprintf("%d", result.StepsTaken)))
	rejected := s.row("rejected", fmt.Sprintf("%d", result.Rejected))
	if result.Rejected > 0 {
		rejected = s.Label.Render("rejected") + s.Warn.Render(fmt.Sprintf("%d", result.Rejected)) + "\n"
	}
	b.WriteString(rejected)

	final := result.Final()
	b.WriteString(s.Separator(32) + "\n")
	b.WriteString(s.row("Ti(0) [keV]", fmt.Sprintf("%.3f", final.TempIon.Value()[0])))
	b.WriteString(s.row("Te(0) [keV]", fmt.Sprintf("%.3f", final.TempEl.Value()[0])))
	b.WriteString(s.row("ne(0) [1e20/m3]", fmt.Sprintf("%.3f", final.Ne.Value()[0])))

	if len(result.Metrics) > 0 {
		b.WriteString(s.Separator(32) + "\n")
		names := make([]string, 0, len(result.Metrics))
		for n := range result.Metrics {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			b.WriteString(s.row(n, fmt.Sprintf("%.4g", result.Metrics[n])))
		}
	}
	if len(result.Dts) > 2 {
		b.WriteString(s.Separator(32) + "\n")
		b.WriteString(s.Label.Render("dt") + s.Sparkline(result.Dts[1:], 32) + "\n")
	}
	return s.Panel.Render(b.String())
}

// channelUnit is the axis label of a channel.
func channelUnit(c plasma.Channel) string {
	switch c {
	case plasma.TempIon, plasma.TempEl:
		return "keV"
	case plasma.Ne:
		return "1e20 m^-3"
	default:
		return "Wb"
	}
}
