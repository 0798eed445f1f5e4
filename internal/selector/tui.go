package selector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	nserrors "github.com/dkrall/noteseek/internal/errors"
)

// TUI is the built-in fallback picker for hosts without fzf. It loads
// the whole stream, then filters with case-insensitive substring match.
type TUI struct{}

// NewTUI creates the built-in picker.
func NewTUI() *TUI {
	return &TUI{}
}

// Run implements Selector. Unlike the fzf path the stream is read to
// completion before the picker opens.
func (t *TUI) Run(ctx context.Context, stream io.Reader) (Outcome, error) {
	lines, err := readLines(stream)
	if err != nil {
		return Outcome{}, nserrors.Wrap(nserrors.ErrCodeSelectorFailed, err)
	}
	if len(lines) == 0 {
		return Outcome{}, nil
	}

	m := newPickerModel(lines)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := program.Run()
	if err != nil {
		return Outcome{}, nserrors.Wrap(nserrors.ErrCodeSelectorFailed, err)
	}

	fm, ok := final.(pickerModel)
	if !ok || !fm.accepted {
		return Outcome{}, nil
	}
	return Outcome{Index: fm.chosen, Key: fm.actionKey, Accepted: true}, nil
}

func readLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// filterLines returns the indices of lines containing query,
// case-insensitively. An empty query matches everything.
func filterLines(lines []string, query string) []int {
	matches := make([]int, 0, len(lines))
	q := strings.ToLower(query)
	for i, line := range lines {
		if q == "" || strings.Contains(strings.ToLower(line), q) {
			matches = append(matches, i)
		}
	}
	return matches
}

type pickerModel struct {
	lines   []string
	matches []int

	input  textinput.Model
	cursor int
	height int
	width  int

	chosen    int
	actionKey string
	accepted  bool

	promptStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	dimStyle      lipgloss.Style
}

func newPickerModel(lines []string) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter"
	ti.Focus()

	return pickerModel{
		lines:         lines,
		matches:       filterLines(lines, ""),
		input:         ti,
		height:        24,
		width:         80,
		promptStyle:   lipgloss.NewStyle().Bold(true),
		selectedStyle: lipgloss.NewStyle().Reverse(true),
		dimStyle:      lipgloss.NewStyle().Faint(true),
	}
}

func (m pickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			return m.accept(""), tea.Quit

		case "ctrl+e":
			return m.accept(KeyCreateNew), tea.Quit

		case "ctrl+r":
			return m.accept(KeyReveal), tea.Quit

		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "ctrl+n":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.matches = filterLines(m.lines, m.input.Value())
	if m.cursor >= len(m.matches) {
		m.cursor = 0
	}
	return m, cmd
}

// accept records the selection mapped back to the unfiltered ordinal.
func (m pickerModel) accept(key string) pickerModel {
	if m.cursor >= len(m.matches) {
		return m
	}
	m.chosen = m.matches[m.cursor]
	m.actionKey = key
	m.accepted = true
	return m
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(m.promptStyle.Render("> "))
	b.WriteString(m.input.View())
	b.WriteByte('\n')

	visible := m.height - 3
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	for row := start; row < len(m.matches) && row < start+visible; row++ {
		line := truncate(m.lines[m.matches[row]], m.width-2)
		if row == m.cursor {
			b.WriteString(m.selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteByte('\n')
	}

	b.WriteString(m.dimStyle.Render(
		fmt.Sprintf("%d/%d  enter open, ctrl-e new, ctrl-r reveal, esc quit",
			len(m.matches), len(m.lines))))
	return b.String()
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}

var _ Selector = (*TUI)(nil)
