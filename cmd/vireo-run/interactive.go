package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vireo-gfx/vireo"
	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/executor"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	cmdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	immStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const defaultStep = float32(1.0 / 60)

type stepperModel struct {
	err      error
	exec     *executor.Executor
	filename string
	capsStr  string
	vp       viewport.Model
	ready    bool
	time     float32
	width    uint32
	height   uint32
	phase    string
	count    int
	trunc    bool
	playing  bool
}

func newStepperModel(filename, capsStr string) *stepperModel {
	return &stepperModel{
		filename: filename,
		capsStr:  capsStr,
		width:    640,
		height:   480,
	}
}

type loadedMsg struct {
	err  error
	exec *executor.Executor
}

type tickMsg struct{}

func (m *stepperModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *stepperModel) loadModule() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	caps, err := parseCaps(m.capsStr)
	if err != nil {
		return loadedMsg{err: err}
	}
	exec := executor.New(executor.Config{Caps: caps})
	if st := exec.LoadModule(data); st != vireo.StatusOK {
		return loadedMsg{err: fmt.Errorf("load module: %s", st)}
	}
	if st := exec.Init(context.Background()); st != vireo.StatusOK {
		return loadedMsg{err: fmt.Errorf("init: %s", st)}
	}
	return loadedMsg{exec: exec}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *stepperModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case " ", "n":
			m.playing = false
			m.step()

		case "p":
			if m.exec != nil && !m.playing {
				m.playing = true
				return m, tick()
			}
			m.playing = false

		case "r":
			if m.exec != nil {
				m.playing = false
				m.time = 0
				if st := m.exec.Init(context.Background()); st != vireo.StatusOK {
					m.err = fmt.Errorf("init: %s", st)
					return m, nil
				}
				m.phase = "init"
				m.refresh()
			}

		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		headerHeight := 4
		footerHeight := 2
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight - footerHeight
		}
		m.refresh()

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.exec = msg.exec
		m.phase = "init"
		m.refresh()

	case tickMsg:
		if m.playing {
			m.step()
			return m, tick()
		}
	}

	return m, nil
}

// step advances the session one frame and refreshes the command view.
func (m *stepperModel) step() {
	if m.exec == nil {
		return
	}
	if st := m.exec.Frame(context.Background(), m.time, m.width, m.height); st != vireo.StatusOK {
		m.err = fmt.Errorf("frame: %s", st)
		m.playing = false
		return
	}
	m.time += defaultStep
	m.phase = fmt.Sprintf("frame %d", m.exec.FrameCounter()-1)
	m.refresh()
}

func (m *stepperModel) refresh() {
	if m.exec == nil || !m.ready {
		return
	}
	buf, err := cmdbuf.Decode(m.exec.Commands())
	if err != nil {
		m.vp.SetContent(errorStyle.Render(fmt.Sprintf("malformed command buffer: %v", err)))
		m.count = 0
		return
	}
	var b strings.Builder
	for _, cmd := range buf.Commands {
		b.WriteString(cmdStyle.Render(cmdbuf.CmdName(cmd.Opcode)))
		if cmd.Imm != nil {
			b.WriteString(" ")
			b.WriteString(immStyle.Render(fmt.Sprintf("%+v", cmd.Imm)))
		}
		b.WriteString("\n")
	}
	m.count = len(buf.Commands)
	m.trunc = buf.Truncated()
	m.vp.SetContent(b.String())
}

func (m *stepperModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.exec == nil || !m.ready {
		return "Loading module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("vireo"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")

	status := fmt.Sprintf("%s • t=%.4f • %d commands", m.phase, m.time, m.count)
	if m.trunc {
		status += " • " + errorStyle.Render("truncated")
	}
	if m.playing {
		status += " • playing"
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n\n")

	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space step • p play/pause • r reset • ↑/↓ scroll • q quit"))

	return b.String()
}

func runInteractive(filename, capsStr string) error {
	p := tea.NewProgram(newStepperModel(filename, capsStr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
