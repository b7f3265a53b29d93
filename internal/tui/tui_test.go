package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sayedtaban/stepmotor/internal/gpio"
	"github.com/sayedtaban/stepmotor/internal/model"
	"github.com/sayedtaban/stepmotor/internal/motor"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	engine := motor.New(gpio.NewSimulator(), zaptest.NewLogger(t))
	m := New(engine, model.DefaultPlan(), zaptest.NewLogger(t))

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

// press feeds one key to the model and returns the updated model.
func press(m Model, key string) Model {
	var msg tea.KeyMsg
	switch key {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_MotorSelectionWraps(t *testing.T) {
	m := newTestModel(t)
	require.Equal(t, 0, m.motorIdx)

	m = press(m, "right")
	assert.Equal(t, 1, m.motorIdx)

	m = press(m, "left")
	m = press(m, "left")
	assert.Equal(t, 2, m.motorIdx, "selection wraps around")
}

func TestModel_AdjustSpeed(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "down") // speed row

	m = press(m, "right")
	assert.Equal(t, 65, m.Plan().Motors[0].SpeedRPM)

	m = press(m, "left")
	m = press(m, "left")
	assert.Equal(t, 55, m.Plan().Motors[0].SpeedRPM)
}

func TestModel_AdjustAngleClamps(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 3; i++ {
		m = press(m, "down")
	}
	require.Equal(t, rowAngle, m.row)

	// Default 45°, stepping down must stop at the minimum.
	for i := 0; i < 10; i++ {
		m = press(m, "left")
	}
	assert.Equal(t, model.MinAngleDeg, m.Plan().Motors[0].AngleDeg)

	for i := 0; i < 30; i++ {
		m = press(m, "right")
	}
	assert.Equal(t, model.MaxAngleDeg, m.Plan().Motors[0].AngleDeg)
}

func TestModel_ToggleStartPosition(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 4; i++ {
		m = press(m, "down")
	}
	require.Equal(t, rowStart, m.row)

	m = press(m, "right")
	assert.Equal(t, model.PositionB, m.Plan().Motors[0].Start)
	m = press(m, "right")
	assert.Equal(t, model.PositionA, m.Plan().Motors[0].Start)
}

func TestModel_RepetitionsClamp(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 5; i++ {
		m = press(m, "down")
	}
	require.Equal(t, rowRepetitions, m.row)

	m = press(m, "left")
	assert.Equal(t, model.MinRepetitions, m.Plan().Repetitions)

	for i := 0; i < model.MaxRepetitions+5; i++ {
		m = press(m, "right")
	}
	assert.Equal(t, model.MaxRepetitions, m.Plan().Repetitions)
}

func TestModel_StartDelayBounds(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "down")
	m = press(m, "down")
	require.Equal(t, rowDelay, m.row)

	m = press(m, "left")
	assert.Equal(t, time.Duration(0), m.Plan().Motors[0].StartDelay)

	for i := 0; i < 30; i++ {
		m = press(m, "right")
	}
	assert.Equal(t, model.MaxStartDelay, m.Plan().Motors[0].StartDelay)
}

func TestModel_EditWhileRunningRejected(t *testing.T) {
	m := newTestModel(t)
	m.running = true
	m = press(m, "down")
	m = press(m, "right")

	assert.Equal(t, 60, m.Plan().Motors[0].SpeedRPM, "edits must not apply mid-run")
	assert.Contains(t, m.status, "Stop the sequence")
}

func TestModel_TabSwitchesView(t *testing.T) {
	m := newTestModel(t)
	require.Equal(t, controlView, m.view)

	m = press(m, "tab")
	assert.Equal(t, logView, m.view)
	m = press(m, "tab")
	assert.Equal(t, controlView, m.view)
}

func TestModel_EventAppendsLog(t *testing.T) {
	m := newTestModel(t)

	next, cmd := m.Update(eventMsg{Kind: motor.EventMotorStarted, Motor: 1, Message: "Motor 1: moving"})
	m = next.(Model)

	require.Len(t, m.logLines, 1)
	assert.Contains(t, m.logLines[0], "Motor 1: moving")
	assert.Equal(t, "Motor 1: moving", m.status)
	assert.NotNil(t, cmd, "the event pump must re-arm")
}

func TestModel_StartSwitchesToLogView(t *testing.T) {
	m := newTestModel(t)

	m = press(m, "enter")
	require.True(t, m.running)
	assert.Equal(t, logView, m.view)

	m.engine.Stop()
}

func TestModel_SpaceStartsRun(t *testing.T) {
	m := newTestModel(t)

	m = press(m, " ")
	require.True(t, m.running)

	m.engine.Stop()
}

func TestModel_RunDone(t *testing.T) {
	m := newTestModel(t)
	m.running = true
	m.status = "Running"

	next, _ := m.Update(runDoneMsg{})
	m = next.(Model)
	assert.False(t, m.running)
	assert.Equal(t, "Ready", m.status)
}

func TestModel_PlanReloaded(t *testing.T) {
	m := newTestModel(t)

	plan := model.DefaultPlan()
	plan.Motors = plan.Motors[:1]
	plan.Repetitions = 5

	next, _ := m.Update(PlanReloadedMsg{Plan: plan})
	m = next.(Model)
	assert.Equal(t, 5, m.Plan().Repetitions)
	assert.Len(t, m.Plan().Motors, 1)
	assert.Equal(t, 0, m.motorIdx)
}

func TestModel_PlanReloadDeferredWhileRunning(t *testing.T) {
	m := newTestModel(t)
	m.running = true

	plan := model.DefaultPlan()
	plan.Repetitions = 7

	next, _ := m.Update(PlanReloadedMsg{Plan: plan})
	m = next.(Model)
	assert.Equal(t, 1, m.Plan().Repetitions, "reload must not apply mid-run")
}

func TestModel_ViewRenders(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	assert.Contains(t, out, "Stepper Motor Control")
	assert.Contains(t, out, "60 RPM")
	assert.Contains(t, out, "45°")

	m = press(m, "tab")
	out = m.View()
	assert.Contains(t, out, "Control")
}
