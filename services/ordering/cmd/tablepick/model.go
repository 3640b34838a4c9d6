package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/appetiteclub/tableside/services/ordering/internal/session"
)

const (
	gridColumns = 5
	openTimeout = 10 * time.Second
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	pickStyle = lipgloss.NewStyle().
			Width(6).
			Align(lipgloss.Center)

	selectedStyle = pickStyle.Copy().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Opened is what the service answered for an opened table.
type Opened struct {
	TableNumber int
	Screen      string
}

// OpenFunc opens the session of a table on the service.
type OpenFunc func(ctx context.Context, tableNumber int) (Opened, error)

type openedMsg struct {
	opened Opened
}

type errMsg struct {
	err error
}

// Model is the table selection screen.
type Model struct {
	picks   []int
	cursor  int
	input   textinput.Model
	spinner spinner.Model
	open    OpenFunc

	opening bool
	opened  *Opened
	err     string
}

func NewModel(open OpenFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "other table"
	ti.CharLimit = len(strconv.Itoa(session.MaxTableNumber))
	ti.Width = 12

	return Model{
		picks:   session.QuickPicks(),
		input:   ti,
		spinner: s,
		open:    open,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case openedMsg:
		m.opening = false
		m.opened = &msg.opened
		m.err = ""
		return m, nil

	case errMsg:
		m.opening = false
		m.err = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.opening {
		return m, nil
	}

	if m.opened != nil {
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "enter":
			m.opened = nil
			m.input.Reset()
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		return m.confirm()
	case "esc":
		if m.input.Focused() {
			m.input.Reset()
			m.input.Blur()
			m.err = ""
			return m, nil
		}
		return m, tea.Quit
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.move(-1)
	case "right", "l":
		m.move(1)
	case "up", "k":
		m.move(-gridColumns)
	case "down", "j":
		m.move(gridColumns)
	case "tab", "/":
		m.err = ""
		return m, m.input.Focus()
	default:
		if msg.Type == tea.KeyRunes && isDigits(msg.Runes) {
			m.err = ""
			cmd := m.input.Focus()
			m.input, _ = m.input.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) move(delta int) {
	next := m.cursor + delta
	if next < 0 || next >= len(m.picks) {
		return
	}
	m.cursor = next
}

// confirm validates the typed number, or the highlighted quick pick when
// nothing was typed, and starts opening the table.
func (m Model) confirm() (tea.Model, tea.Cmd) {
	var table int
	if raw := strings.TrimSpace(m.input.Value()); raw != "" || m.input.Focused() {
		n, err := session.ParseTableNumber(raw)
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		table = n
	} else {
		table = m.picks[m.cursor]
	}

	m.err = ""
	m.opening = true
	return m, openTable(m.open, table)
}

func openTable(open OpenFunc, table int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
		defer cancel()

		opened, err := open(ctx, table)
		if err != nil {
			return errMsg{err: fmt.Errorf("cannot open table %d: %w", table, err)}
		}
		return openedMsg{opened: opened}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select your table"))
	b.WriteString("\n\n")

	if m.opened != nil {
		b.WriteString(successStyle.Render(fmt.Sprintf("Table %d is ready", m.opened.TableNumber)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter: pick another table • q: quit"))
		return docStyle.Render(b.String())
	}

	for i, n := range m.picks {
		style := pickStyle
		if i == m.cursor && !m.input.Focused() {
			style = selectedStyle
		}
		b.WriteString(style.Render(strconv.Itoa(n)))
		if (i+1)%gridColumns == 0 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.opening:
		b.WriteString(m.spinner.View() + " Opening table...")
	case m.err != "":
		b.WriteString(errorStyle.Render(m.err))
	default:
		b.WriteString(helpStyle.Render("arrows: move • digits: type a number • enter: confirm • q: quit"))
	}

	return docStyle.Render(b.String())
}

func isDigits(runes []rune) bool {
	if len(runes) == 0 {
		return false
	}
	for _, r := range runes {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
