package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/sim"
)

const historyCapacity = 400

// StepMsg carries one accepted step into the live view.
type StepMsg sim.StepRecord

// DoneMsg ends the run. Err is nil when the run reached t_final.
type DoneMsg struct{ Err error }

// LiveModel is a bubbletea model that follows a running simulation.
type LiveModel struct {
	name    string
	tFinal  float64
	channel int
	theme   Theme
	styles  Styles
	cancel  context.CancelFunc

	last     sim.StepRecord
	started  bool
	rejected int
	dts      []float64
	iters    []float64

	done bool
	err  error
}

// NewLiveModel builds the view. cancel is called when the user quits.
func NewLiveModel(name string, tFinal float64, cancel context.CancelFunc) LiveModel {
	return LiveModel{
		name:   name,
		tFinal: tFinal,
		theme:  Themes[0],
		styles: NewStyles(Themes[0]),
		cancel: cancel,
		dts:    make([]float64, 0, historyCapacity),
		iters:  make([]float64, 0, historyCapacity),
	}
}

func (m LiveModel) Init() tea.Cmd { return nil }

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "c", "tab":
			m.channel = (m.channel + 1) % len(plasma.AllChannels)
		case "t":
			m.theme = next(m.theme)
			m.styles = NewStyles(m.theme)
		}
	case StepMsg:
		rec := sim.StepRecord(msg)
		m.last, m.started = rec, true
		m.rejected += rec.Rejected
		if rec.Step > 0 {
			m.dts = push(m.dts, rec.Dt)
			m.iters = push(m.iters, float64(rec.Iterations))
		}
	case DoneMsg:
		m.done, m.err = true, msg.Err
	}
	return m, nil
}

func push(buf []float64, v float64) []float64 {
	if len(buf) == historyCapacity {
		copy(buf, buf[1:])
		buf = buf[:len(buf)-1]
	}
	return append(buf, v)
}

// Channel is the channel currently plotted.
func (m LiveModel) Channel() plasma.Channel { return plasma.AllChannels[m.channel] }

func (m LiveModel) status() string {
	switch {
	case m.err != nil:
		return m.styles.Bad.Render("FAILED: " + m.err.Error())
	case m.done:
		return m.styles.Good.Render("DONE")
	case !m.started:
		return m.styles.Muted.Render("starting")
	default:
		return m.styles.Warn.Render("RUNNING")
	}
}

func (m LiveModel) View() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Header.Render(strings.ToUpper(m.name)) + "\n")
	b.WriteString(m.status() + "\n\n")

	if m.started {
		frac := 1.0
		if m.tFinal > 0 {
			frac = m.last.Time / m.tFinal
		}
		b.WriteString(s.ProgressBar(frac, 30) + fmt.Sprintf(" %5.1f%%\n", 100*frac))
		b.WriteString(s.row("t", fmt.Sprintf("%.4f s", m.last.Time)))
		b.WriteString(s.row("step", fmt.Sprintf("%d", m.last.Step)))
		b.WriteString(s.row("dt", fmt.Sprintf("%.3g s", m.last.Dt)))
		b.WriteString(s.row("iterations", fmt.Sprintf("%d", m.last.Iterations)))
		b.WriteString(s.row("residual", fmt.Sprintf("%.3g", m.last.Residual)))
		b.WriteString(s.row("rejected", fmt.Sprintf("%d", m.rejected)))
		b.WriteString(s.Label.Render("dt history") + s.Sparkline(m.dts, 30) + "\n")
		b.WriteString(s.Label.Render("iterations") + s.Sparkline(m.iters, 30) + "\n")
	}
	stats := s.Panel.Render(b.String())

	chart := ""
	if m.started {
		chart = lipgloss.NewStyle().Padding(1, 2).Render(PlotProfile(m.last.Profiles.Get(m.Channel()).Value(), m.Channel(), 50, 12))
	}
	help := s.Muted.Render("c: channel  t: theme  q: quit")
	return lipgloss.JoinHorizontal(lipgloss.Top, stats, chart) + "\n" + help
}

// RunLive starts a bubbletea program and feeds it from run, which is
// expected to call the callback once per accepted step.
func RunLive(ctx context.Context, model LiveModel, run func(ctx context.Context, cb func(sim.StepRecord) bool) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	model.cancel = cancel

	p := tea.NewProgram(model)
	go func() {
		err := run(ctx, func(rec sim.StepRecord) bool {
			p.Send(StepMsg(rec))
			return ctx.Err() == nil
		})
		p.Send(DoneMsg{Err: err})
	}()
	_, err := p.Run()
	return err
}
