package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sayedtaban/stepmotor/internal/model"
	"github.com/sayedtaban/stepmotor/internal/motor"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refreshLog()
		return m, nil

	case eventMsg:
		m.appendLog(motor.Event(msg))
		return m, waitForEvent(m.engine)

	case runDoneMsg:
		m.running = false
		m.status = "Ready"
		return m, nil

	case PlanReloadedMsg:
		if m.running {
			m.status = "Profile changed on disk; applied after this run"
			return m, nil
		}
		m.plan = msg.Plan
		if m.motorIdx >= len(m.plan.Motors) {
			m.motorIdx = 0
		}
		m.status = "Profile reloaded"
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.view == logView {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.running {
			m.engine.Stop()
		}
		return m, tea.Quit

	case "tab":
		if m.view == controlView {
			m.view = logView
			m.refreshLog()
			m.viewport.GotoBottom()
		} else {
			m.view = controlView
		}
		return m, nil
	}

	if m.view == logView {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < rowCount-1 {
			m.row++
		}
	case "left", "h":
		m.adjust(-1)
	case "right", "l":
		m.adjust(+1)
	case "enter", " ":
		if m.running {
			m.engine.Stop()
			return m, nil
		}
		cmd := m.startRun()
		return m, cmd
	case "s":
		if m.running {
			m.engine.Stop()
		}
	}
	return m, nil
}

// adjust changes the selected row's value by one increment in the given
// direction, clamped to the motion parameter bounds. Edits are rejected
// while a run is active.
func (m *Model) adjust(dir int) {
	if m.running {
		m.status = "Stop the sequence before editing"
		return
	}

	cfg := &m.plan.Motors[m.motorIdx]
	switch m.row {
	case rowMotor:
		m.motorIdx = wrap(m.motorIdx+dir, len(m.plan.Motors))
	case rowSpeed:
		cfg.SpeedRPM = clamp(cfg.SpeedRPM+dir*5, model.MinSpeedRPM, model.MaxSpeedRPM)
	case rowDelay:
		d := cfg.StartDelay + time.Duration(dir)*100*time.Millisecond
		if d < 0 {
			d = 0
		}
		if d > model.MaxStartDelay {
			d = model.MaxStartDelay
		}
		cfg.StartDelay = d
	case rowAngle:
		cfg.AngleDeg = clamp(cfg.AngleDeg+dir*model.AngleStepDeg, model.MinAngleDeg, model.MaxAngleDeg)
	case rowStart:
		if cfg.Start == model.PositionA {
			cfg.Start = model.PositionB
		} else {
			cfg.Start = model.PositionA
		}
	case rowRepetitions:
		m.plan.Repetitions = clamp(m.plan.Repetitions+dir, model.MinRepetitions, model.MaxRepetitions)
	case rowReturnMode:
		m.plan.ReturnTogether = !m.plan.ReturnTogether
	}
}

// appendLog adds one engine event to the log view, trimming old lines.
func (m *Model) appendLog(ev motor.Event) {
	line := fmt.Sprintf("%s  %s", time.Now().Format("15:04:05"), ev.String())
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	m.status = ev.String()
	m.refreshLog()
	m.viewport.GotoBottom()
}

func (m *Model) refreshLog() {
	m.viewport.SetContent(strings.Join(m.logLines, "\n"))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrap(v, n int) int {
	if n == 0 {
		return 0
	}
	return ((v % n) + n) % n
}
