package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmccay-work/cfbc2wasm/compiler"
	"github.com/jmccay-work/cfbc2wasm/wasmtype"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// routineArgLabels names the arguments a routine takes beyond the
// receiver, in order, mirroring the parameter lists in typeman/dispatch.go.
var routineArgLabels = map[string][]string{
	"callVirtual":   {"vFuncIndex"},
	"callInterface": {"classIndex", "vFuncIndex"},
	"instanceof":    {"classIndex"},
	"cast":          {"classIndex"},
}

var routineOrder = []string{"callVirtual", "callInterface", "instanceof", "cast"}

type tuiState int

const (
	stateSelectType tuiState = iota
	stateShowType
	stateSelectRoutine
	stateInputArgs
	stateShowResult
)

type model struct {
	c     *compiler.Compiler
	mod   *wasmtype.Module
	types []typeInfo

	state      tuiState
	selected   int
	routineIdx int
	inputs     []textinput.Model
	focusIdx   int
	result     string
	callErr    error
}

func newModel(c *compiler.Compiler, types []typeInfo, mod *wasmtype.Module) *model {
	return &model{c: c, mod: mod, types: types, state: stateSelectType}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.state == stateInputArgs {
			var cmds []tea.Cmd
			for i := range m.inputs {
				var cmd tea.Cmd
				m.inputs[i], cmd = m.inputs[i].Update(msg)
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}
		return m, nil
	}

	switch keyMsg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		switch m.state {
		case stateSelectType:
			if m.selected > 0 {
				m.selected--
			}
		case stateSelectRoutine:
			if m.routineIdx > 0 {
				m.routineIdx--
			}
		}

	case "down", "j":
		switch m.state {
		case stateSelectType:
			if m.selected < len(m.types)-1 {
				m.selected++
			}
		case stateSelectRoutine:
			if m.routineIdx < len(routineOrder)-1 {
				m.routineIdx++
			}
		}

	case "c":
		if m.state == stateShowType {
			m.routineIdx = 0
			m.state = stateSelectRoutine
		}

	case "enter":
		switch m.state {
		case stateSelectType:
			m.state = stateShowType
		case stateSelectRoutine:
			m.prepareInputs()
			if len(m.inputs) == 0 {
				m.call()
			} else {
				m.state = stateInputArgs
			}
		case stateInputArgs:
			m.call()
		case stateShowResult:
			m.state = stateShowType
			m.result = ""
			m.callErr = nil
		}

	case "tab":
		if m.state == stateInputArgs && len(m.inputs) > 1 {
			m.inputs[m.focusIdx].Blur()
			m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
			m.inputs[m.focusIdx].Focus()
		}

	case "esc":
		switch m.state {
		case stateShowType:
			m.state = stateSelectType
		case stateSelectRoutine:
			m.state = stateShowType
		case stateInputArgs:
			m.inputs = nil
			m.state = stateSelectRoutine
		case stateShowResult:
			m.state = stateShowType
			m.result = ""
			m.callErr = nil
		}
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *model) prepareInputs() {
	labels := routineArgLabels[routineOrder[m.routineIdx]]
	m.inputs = make([]textinput.Model, len(labels))
	for i, label := range labels {
		ti := textinput.New()
		ti.Placeholder = "0"
		ti.Prompt = label + ": "
		ti.Width = 20
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *model) call() {
	routine := routineOrder[m.routineIdx]
	args := make([]int32, len(m.inputs))
	for i, input := range m.inputs {
		v, _ := strconv.ParseInt(strings.TrimSpace(input.Value()), 10, 32)
		args[i] = int32(v)
	}

	t := m.types[m.selected]
	results, err := callRoutineLive(m.c, m.mod, routine, t.descriptor.VTableOffset, args)
	m.callErr = err
	if err == nil {
		m.result = fmt.Sprintf("%s(%s, %v) = %v", routine, t.name, args, results)
	}
	m.state = stateShowResult
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Type Scanner"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectType:
		b.WriteString(fmt.Sprintf("%d types discovered\n\n", len(m.types)))
		for i, t := range m.types {
			line := fmt.Sprintf("%s  %-14s %s", kindStyle.Render(fmt.Sprintf("#%-4d", t.classIndex)), t.kind, nameStyle.Render(t.name))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • q quit"))

	case stateShowType:
		t := m.types[m.selected]
		b.WriteString(fmt.Sprintf("%s (%s, class#%d)\n\n", nameStyle.Render(t.name), t.kind, t.classIndex))
		b.WriteString(fmt.Sprintf("v-table (%d slots):\n", len(t.vtable)))
		for i, fn := range t.vtable {
			b.WriteString(fmt.Sprintf("  [%d] %s\n", i, fn))
		}
		if len(t.interfaces) > 0 {
			b.WriteString(fmt.Sprintf("\ni-table (%d interfaces):\n", len(t.interfaces)))
			for _, iface := range t.interfaces {
				b.WriteString("  " + iface + "\n")
			}
		}
		if len(t.instanceOf) > 0 {
			b.WriteString(fmt.Sprintf("\ninstanceof (%d entries): %s\n", len(t.instanceOf), strings.Join(t.instanceOf, ", ")))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("c call a dispatch routine • esc back • q quit"))

	case stateSelectRoutine:
		b.WriteString("Choose a dispatch routine:\n\n")
		for i, r := range routineOrder {
			cursor := "  "
			if i == m.routineIdx {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + r))
			} else {
				b.WriteString(cursor + r)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter continue • esc back"))

	case stateInputArgs:
		b.WriteString(fmt.Sprintf("Calling %s on %s\n\n", routineOrder[m.routineIdx], m.types[m.selected].name))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		b.WriteString("Result:\n\n")
		if m.callErr != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.callErr)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

// callRoutineLive runs routine against a copy of mod's real metadata
// image with a synthetic instance appended whose .vtable points at
// vtableOffset (thisType's blob), through the same wazero execution
// path callRoutine uses in non-interactive mode.
func callRoutineLive(c *compiler.Compiler, mod *wasmtype.Module, routine string, vtableOffset int, extra []int32) ([]uint64, error) {
	if len(mod.Data) == 0 {
		return nil, fmt.Errorf("module has no data segment to run against")
	}
	data := append([]byte(nil), mod.Data[0].Init...)
	data, addr := withInstanceAt(data, int32(vtableOffset))
	args := append([]int32{addr}, extra...)
	return runDispatchRoutine(c.Funcs, routine, data, args)
}

func runInteractive(c *compiler.Compiler, types []typeInfo, mod *wasmtype.Module) error {
	p := tea.NewProgram(newModel(c, types, mod), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
