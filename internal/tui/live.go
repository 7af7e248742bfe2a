// Package tui shows live progress for step-mode runs.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

const barWidth = 40

// StepMsg reports completion of one reporting interval.
type StepMsg struct {
	Step  int
	Total int
	T     float64
}

// DoneMsg ends the view when the run finishes.
type DoneMsg struct {
	Err error
}

// Model is the bubbletea model for a step-mode run in flight.
type Model struct {
	modelName string
	backend   string
	sims      int
	step      int
	total     int
	t         float64
	started   time.Time
	done      bool
	err       error
}

// NewModel readies a progress view for a run of sims trajectories.
func NewModel(modelName, backend string, sims int) Model {
	return Model{
		modelName: modelName,
		backend:   backend,
		sims:      sims,
		started:   time.Now(),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StepMsg:
		m.step = msg.Step
		m.total = msg.Total
		m.t = msg.T
		return m, nil
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("stochsim  %s  [%s]", m.modelName, m.backend)))
	b.WriteByte('\n')

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteByte('\n')
	}
	row("trajectories", fmt.Sprintf("%d", m.sims))
	row("sim time", fmt.Sprintf("%.4f", m.t))
	row("elapsed", time.Since(m.started).Round(time.Millisecond).String())

	frac := 0.0
	if m.total > 0 {
		frac = float64(m.step) / float64(m.total)
	}
	filled := int(frac * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	b.WriteString(barStyle.Render(bar))
	fmt.Fprintf(&b, " %d/%d\n", m.step, m.total)

	if m.done {
		if m.err != nil {
			b.WriteString(errStyle.Render("failed: " + m.err.Error()))
		} else {
			b.WriteString(doneStyle.Render("complete"))
		}
		b.WriteByte('\n')
	}
	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}
