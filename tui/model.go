package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"midi-mapper/engine"
	"midi-mapper/midi"
	"midi-mapper/theme"
)

// maxLines is how many translations the monitor keeps on screen
const maxLines = 20

// Ports is what the monitor needs from the port manager
type Ports interface {
	Inputs() []string
	Outputs() []string
	Events() <-chan midi.DeviceEvent
}

type Model struct {
	Ports    Ports
	Bank     *engine.BankState
	Banks    []int // banks the mapping table defines
	theme    *theme.Theme
	activity <-chan engine.Activity
	lines    []string
	status   string
	warning  bool
	width    int
	quitting bool
}

type ActivityMsg engine.Activity

type DeviceEventMsg midi.DeviceEvent

// NewModel creates the monitor; a nil theme selects the built-in palette
func NewModel(ports Ports, bank *engine.BankState, banks []int, activity <-chan engine.Activity, th *theme.Theme) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Ports:    ports,
		Bank:     bank,
		Banks:    banks,
		theme:    th,
		activity: activity,
		width:    80,
	}
}

func ListenForActivity(activity <-chan engine.Activity) tea.Cmd {
	return func() tea.Msg {
		return ActivityMsg(<-activity)
	}
}

func ListenForDevices(ports Ports) tea.Cmd {
	return func() tea.Msg {
		return DeviceEventMsg(<-ports.Events())
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForActivity(m.activity),
		ListenForDevices(m.Ports),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			m.lines = nil
			m.status = ""
			m.warning = false
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case ActivityMsg:
		m.lines = append(m.lines, describe(engine.Activity(msg)))
		if len(m.lines) > maxLines {
			m.lines = m.lines[len(m.lines)-maxLines:]
		}
		return m, ListenForActivity(m.activity)

	case DeviceEventMsg:
		kind := "input"
		if msg.Output {
			kind = "output"
		}
		m.status = fmt.Sprintf("%s %s %s", kind, msg.ID, msg.Type)
		m.warning = msg.Type == midi.DeviceDisconnected
		return m, ListenForDevices(m.Ports)
	}

	return m, nil
}

// describe renders one activity as a monitor line
func describe(a engine.Activity) string {
	line := a.Line
	if line == "" {
		line = fmt.Sprintf("[%d] %s__%s => bank %s", a.Bank, a.Record.InputDevice, a.Record.Description, a.Record.OutputControl)
	}
	if dropped := len(a.Commands) - a.Sent; dropped > 0 {
		line += fmt.Sprintf("  (%d dropped)", dropped)
	}
	return line
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	t := m.theme
	bank := fmt.Sprintf("bank %d", m.Bank.Active())
	if len(m.Banks) > 0 {
		bank += fmt.Sprintf(" of %v", m.Banks)
	}
	header := t.Header.Render("midi-mapper") + "  " +
		t.Bank.Render(bank) + "  " +
		t.Dim.Render(fmt.Sprintf("in:%d out:%d", len(m.Ports.Inputs()), len(m.Ports.Outputs())))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")

	if len(m.lines) == 0 {
		out.WriteString(t.Dim.Render("waiting for mapped events..."))
		out.WriteString("\n")
	}
	for _, line := range m.lines {
		out.WriteString(t.Line.Render(runewidth.Truncate(line, m.width, "…")))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	if m.status != "" {
		style := t.Status
		if m.warning {
			style = t.Warn
		}
		out.WriteString(style.Render(m.status))
		out.WriteString("\n")
	}
	out.WriteString(t.Dim.Render("c:clear  q:quit"))

	return out.String()
}
