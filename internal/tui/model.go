// Package tui provides the interactive control interface for the motor
// rig: a control view for editing the sequence plan and starting or
// stopping runs, and a log view streaming engine events.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sayedtaban/stepmotor/internal/model"
	"github.com/sayedtaban/stepmotor/internal/motor"
)

// viewMode selects which of the two views is rendered.
type viewMode int

const (
	// controlView shows the editable plan and the start/stop controls.
	controlView viewMode = iota

	// logView shows the scrolling engine event log.
	logView
)

// Editable rows of the control view, in display order.
const (
	rowMotor = iota
	rowSpeed
	rowDelay
	rowAngle
	rowStart
	rowRepetitions
	rowReturnMode
	rowCount
)

// maxLogLines bounds the in-memory event log.
const maxLogLines = 500

// eventMsg delivers one engine event to the model.
type eventMsg motor.Event

// runDoneMsg means the active run ended, however it ended.
type runDoneMsg struct{}

// PlanReloadedMsg replaces the edited plan, sent by the profile watcher
// via Program.Send when the profile file changes on disk.
type PlanReloadedMsg struct {
	Plan model.SequencePlan
}

// Model is the bubbletea model for the control interface.
type Model struct {
	engine *motor.Engine
	log    *zap.Logger

	plan     model.SequencePlan
	view     viewMode
	row      int
	motorIdx int

	running bool
	status  string

	logLines []string
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool
}

// New creates the model around an engine and the plan to edit.
func New(engine *motor.Engine, plan model.SequencePlan, log *zap.Logger) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		engine:  engine,
		log:     log,
		plan:    plan,
		status:  "Ready",
		spinner: sp,
	}
}

// Plan returns the currently edited plan.
func (m Model) Plan() model.SequencePlan {
	return m.plan
}

// Init starts the spinner and the engine event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.engine))
}

// waitForEvent blocks on the engine's event stream and forwards the
// next event as a message.
func waitForEvent(e *motor.Engine) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-e.Events())
	}
}

// waitForDone resolves when the active run has fully ended and its
// lines are released.
func waitForDone(e *motor.Engine) tea.Cmd {
	return func() tea.Msg {
		e.Wait()
		return runDoneMsg{}
	}
}

// startRun kicks off the engine with the current plan.
func (m *Model) startRun() tea.Cmd {
	if err := m.engine.Start(context.Background(), m.plan); err != nil {
		m.status = "Start failed: " + err.Error()
		m.log.Warn("start failed", zap.Error(err))
		return nil
	}
	m.running = true
	m.status = "Running"
	// Jump to the log view so the run's events are visible immediately.
	m.view = logView
	return waitForDone(m.engine)
}
