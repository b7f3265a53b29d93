package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true).Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(16)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	if m.view == controlView {
		body = m.renderControl()
	} else {
		body = m.viewport.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	control, log := tabStyle, tabStyle
	if m.view == controlView {
		control = activeTabStyle
	} else {
		log = activeTabStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("Stepper Motor Control"),
		control.Render("Control"),
		log.Render("Log"),
	)
}

func (m Model) renderControl() string {
	cfg := m.plan.Motors[m.motorIdx]

	returnMode := "together"
	if !m.plan.ReturnTogether {
		returnMode = "individually"
	}

	rows := []struct {
		label string
		value string
	}{
		{"Motor", fmt.Sprintf("%d of %d  (step %d / dir %d)",
			m.motorIdx+1, len(m.plan.Motors), cfg.Spec.StepPin, cfg.Spec.DirPin)},
		{"Speed", fmt.Sprintf("%d RPM", cfg.SpeedRPM)},
		{"Start delay", fmt.Sprintf("%.1f s", cfg.StartDelay.Seconds())},
		{"Angle", fmt.Sprintf("%d°", cfg.AngleDeg)},
		{"Start position", cfg.Start.String()},
		{"Repetitions", fmt.Sprintf("%d", m.plan.Repetitions)},
		{"Return", returnMode},
	}

	var sb strings.Builder
	sb.WriteString("\n")
	for i, row := range rows {
		cursor := "  "
		label := labelStyle.Render(row.label)
		value := valueStyle.Render(row.value)
		if i == m.row {
			cursor = selectedStyle.Render("> ")
			label = selectedStyle.Width(16).Render(row.label)
			value = selectedStyle.Render(row.value)
		}
		sb.WriteString(cursor + label + value + "\n")
	}

	sb.WriteString("\n")
	if m.running {
		sb.WriteString(m.spinner.View() + statusStyle.Render(" "+m.status) + "\n")
	} else {
		sb.WriteString(statusStyle.Render(m.status) + "\n")
	}
	return sb.String()
}

func (m Model) renderFooter() string {
	action := "enter: start"
	if m.running {
		action = "enter: stop"
	}
	return helpStyle.Render(
		fmt.Sprintf("↑/↓: select  ←/→: change  %s  tab: log  q: quit", action))
}
