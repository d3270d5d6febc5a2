package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// maxHistory bounds the number of commands kept on screen.
const maxHistory = 200

type historyEntry struct {
	err    error
	line   string
	output string
}

type interactiveModel struct {
	ctx     context.Context
	con     *console
	input   textinput.Model
	history []historyEntry
	recall  int
	height  int
}

func newInteractiveModel(ctx context.Context, con *console) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "new counter counter.vcd 42"
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{ctx: ctx, con: con, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

// run executes a line synchronously; the console is not shared with
// any other goroutine.
func (m *interactiveModel) run(line string) tea.Cmd {
	out, err := m.con.Exec(m.ctx, line)
	if errors.Is(err, errQuit) {
		return tea.Quit
	}
	m.history = append(m.history, historyEntry{line: line, output: out, err: err})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.recall = 0
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			return m, m.run(line)

		case "up":
			if n := len(m.history); n > 0 && m.recall < n {
				m.recall++
				m.input.SetValue(m.history[n-m.recall].line)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recall > 1 {
				m.recall--
				m.input.SetValue(m.history[len(m.history)-m.recall].line)
				m.input.CursorEnd()
			} else {
				m.recall = 0
				m.input.Reset()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Simulation Console"))
	if !m.con.cur.IsZero() {
		model, _ := m.con.b.Model(m.con.cur)
		b.WriteString(" ")
		b.WriteString(nameStyle.Render(m.con.cur.String() + " " + model))
	}
	b.WriteString("\n\n")

	log := m.renderHistory()
	if side := m.renderSignals(); side != "" {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, log, "  ", panelStyle.Render(side)))
	} else {
		b.WriteString(log)
	}

	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter run • ↑/↓ history • help commands • esc quit"))
	return b.String()
}

func (m *interactiveModel) renderHistory() string {
	var lines []string
	for _, e := range m.history {
		lines = append(lines, commandStyle.Render("> "+e.line))
		switch {
		case e.err != nil:
			lines = append(lines, errorStyle.Render("error: "+e.err.Error()))
		case e.output != "":
			lines = append(lines, resultStyle.Render(e.output))
		}
	}
	text := strings.Split(strings.Join(lines, "\n"), "\n")

	// leave room for the title, the prompt and the help line
	if keep := m.height - 6; keep > 0 && len(text) > keep {
		text = text[len(text)-keep:]
	}
	return strings.Join(text, "\n")
}

func (m *interactiveModel) renderSignals() string {
	if m.con.cur.IsZero() {
		return ""
	}
	layout, err := m.con.b.Signals(m.con.cur)
	if err != nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("signals\n")
	for _, info := range layout {
		fmt.Fprintf(&b, "\n%3d %s %s", info.ID,
			nameStyle.Render(fmt.Sprintf("%-10s", info.Label())),
			typeStyle.Render(info.TypeName()))
	}
	return b.String()
}

func runInteractive(ctx context.Context, con *console) error {
	p := tea.NewProgram(newInteractiveModel(ctx, con), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// prompt is the line-mode console used when stdin is a terminal but the
// TUI was not requested. Errors are reported and the session continues.
func prompt(ctx context.Context, con *console) error {
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("simctl> ")
		if !sc.Scan() {
			fmt.Println()
			return sc.Err()
		}
		out, err := con.Exec(ctx, sc.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}
