package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/viz"
)

const historyLen = 120

// StepMsg reports a finished step and the latest value of every metric.
type StepMsg struct {
	Step   int
	Values []float64
}

// DoneMsg ends the progress display.
type DoneMsg struct {
	Err error
}

type ProgressModel struct {
	names   []string
	history [][]float64
	latest  []float64

	first int
	total int
	step  int
	start time.Time
	now   func() time.Time

	width    int
	done     bool
	canceled bool
	err      error
	cancel   func()
}

// NewProgressModel tracks steps first+1 through first+total. cancel is called
// when the user quits before the run ends.
func NewProgressModel(names []string, first, total int, cancel func()) ProgressModel {
	return ProgressModel{
		names:   names,
		history: make([][]float64, len(names)),
		latest:  make([]float64, len(names)),
		first:   first,
		total:   total,
		step:    first,
		start:   time.Now(),
		now:     time.Now,
		width:   80,
		cancel:  cancel,
	}
}

func (m ProgressModel) Init() tea.Cmd { return nil }

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			m.canceled = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StepMsg:
		m.step = msg.Step
		for i, v := range msg.Values {
			if i >= len(m.history) {
				break
			}
			m.latest[i] = v
			m.history[i] = append(m.history[i], v)
			if len(m.history[i]) > historyLen {
				m.history[i] = m.history[i][1:]
			}
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Fraction is the share of requested steps already taken.
func (m ProgressModel) Fraction() float64 {
	if m.total <= 0 {
		return 1
	}
	return float64(m.step-m.first) / float64(m.total)
}

// ETA extrapolates the remaining time from the average step duration.
func (m ProgressModel) ETA() time.Duration {
	taken := m.step - m.first
	if taken <= 0 {
		return 0
	}
	per := m.now().Sub(m.start) / time.Duration(taken)
	return per * time.Duration(m.total-taken)
}

func (m ProgressModel) View() string {
	s := viz.Default
	barWidth := max(10, min(m.width-30, 50))

	var b strings.Builder
	b.WriteString(s.Title.Render("fluidsim"))
	b.WriteString("\n")
	b.WriteString(s.Bar.Render(viz.ProgressBar(m.Fraction(), barWidth)))
	b.WriteString(fmt.Sprintf(" %d/%d", m.step-m.first, m.total))
	if !m.done {
		b.WriteString(s.Subtle.Render(fmt.Sprintf("  eta %s", m.ETA().Round(time.Millisecond))))
	}
	b.WriteString("\n\n")

	for i, name := range m.names {
		b.WriteString(s.MetricLabel.Render(name))
		b.WriteString(s.MetricValue.Render(fmt.Sprintf("%-14s", viz.FormatValue(m.latest[i]))))
		b.WriteString(" ")
		b.WriteString(s.Subtle.Render(viz.Sparkline(m.history[i], 30)))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + s.StatusError.Render(m.err.Error()) + "\n")
	case m.done:
		b.WriteString("\n" + s.StatusOK.Render("done") + "\n")
	case m.canceled:
		b.WriteString("\n" + s.StatusWarn.Render("canceled") + "\n")
	default:
		b.WriteString(s.Subtle.Render("\nq to stop after the current step\n"))
	}
	return b.String()
}

// Progress drives a ProgressModel from engine steps. It is a sim.Observer.
type Progress struct {
	program *tea.Program
	metrics []sim.Metric
	exited  chan error
}

func NewProgress(metrics []sim.Metric, first, total int, cancel func(), opts ...tea.ProgramOption) *Progress {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = m.Name()
	}
	model := NewProgressModel(names, first, total, cancel)
	return &Progress{
		program: tea.NewProgram(model, opts...),
		metrics: metrics,
		exited:  make(chan error, 1),
	}
}

// Start runs the program in the background.
func (p *Progress) Start() {
	go func() {
		_, err := p.program.Run()
		p.exited <- err
	}()
}

func (p *Progress) OnStep(step int, _ []physics.Particle) {
	values := make([]float64, len(p.metrics))
	for i, m := range p.metrics {
		values[i] = m.Last()
	}
	p.program.Send(StepMsg{Step: step, Values: values})
}

// Finish ends the display and waits for the program to exit.
func (p *Progress) Finish(runErr error) error {
	p.program.Send(DoneMsg{Err: runErr})
	return <-p.exited
}
