package selector

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nserrors "github.com/dkrall/noteseek/internal/errors"
)

func TestFeedOrdinals(t *testing.T) {
	stream := strings.NewReader("/a.md:1:alpha\n/b.md:3:beta\n/c.pdf\n")
	var out strings.Builder

	require.NoError(t, feedOrdinals(&out, stream))
	assert.Equal(t,
		"0\t/a.md:1:alpha\n1\t/b.md:3:beta\n2\t/c.pdf\n",
		out.String())
}

func TestFeedOrdinals_EmptyStream(t *testing.T) {
	var out strings.Builder
	require.NoError(t, feedOrdinals(&out, strings.NewReader("")))
	assert.Empty(t, out.String())
}

func TestParseFzfOutput(t *testing.T) {
	tests := []struct {
		name   string
		out    string
		expect bool
		want   Outcome
	}{
		{
			name:   "plain accept with expect keys",
			out:    "\n4\t/n.md:5:text\n",
			expect: true,
			want:   Outcome{Index: 4, Accepted: true},
		},
		{
			name:   "action key pressed",
			out:    "ctrl-e\n0\t/n.md:1:text\n",
			expect: true,
			want:   Outcome{Index: 0, Key: "ctrl-e", Accepted: true},
		},
		{
			name:   "no expect keys configured",
			out:    "12\t/deep/note.txt:9:line with\ttab\n",
			expect: false,
			want:   Outcome{Index: 12, Accepted: true},
		},
		{
			name:   "empty output means dismissed",
			out:    "",
			expect: false,
			want:   Outcome{},
		},
		{
			name:   "key line without selection means dismissed",
			out:    "ctrl-e\n",
			expect: true,
			want:   Outcome{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFzfOutput(tt.out, tt.expect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFzfOutput_MissingOrdinal(t *testing.T) {
	_, err := parseFzfOutput("no tab here\n", false)
	require.Error(t, err)
	assert.Equal(t, nserrors.ErrCodeSelectorFailed, nserrors.GetCode(err))
}

func TestFilterLines(t *testing.T) {
	lines := []string{
		"/a.md:1:Grocery list",
		"/a.md:2:call dentist",
		"/b.md:1:groceries again",
	}

	assert.Equal(t, []int{0, 1, 2}, filterLines(lines, ""))
	assert.Equal(t, []int{0, 2}, filterLines(lines, "groc"))
	assert.Equal(t, []int{1}, filterLines(lines, "DENTIST"))
	assert.Empty(t, filterLines(lines, "nothing matches"))
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+e":
		return tea.KeyMsg{Type: tea.KeyCtrlE}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPickerModel_EnterSelectsCursorLine(t *testing.T) {
	m := newPickerModel([]string{"/a:1:one", "/b:1:two", "/c:1:three"})

	next, _ := m.Update(key("down"))
	next, _ = next.Update(key("enter"))

	fm := next.(pickerModel)
	assert.True(t, fm.accepted)
	assert.Equal(t, 1, fm.chosen)
	assert.Empty(t, fm.actionKey)
}

func TestPickerModel_FilterMapsBackToOriginalIndex(t *testing.T) {
	m := newPickerModel([]string{"/a:1:apple", "/b:1:banana", "/c:1:apricot"})

	var next tea.Model = m
	for _, r := range "ban" {
		next, _ = next.Update(key(string(r)))
	}
	next, _ = next.Update(key("enter"))

	fm := next.(pickerModel)
	require.True(t, fm.accepted)
	assert.Equal(t, 1, fm.chosen, "filtered selection keeps the unfiltered ordinal")
}

func TestPickerModel_ActionKey(t *testing.T) {
	m := newPickerModel([]string{"/a:1:only"})
	next, _ := m.Update(key("ctrl+e"))

	fm := next.(pickerModel)
	assert.True(t, fm.accepted)
	assert.Equal(t, KeyCreateNew, fm.actionKey)
}

func TestPickerModel_EscAborts(t *testing.T) {
	m := newPickerModel([]string{"/a:1:only"})
	next, _ := m.Update(key("esc"))

	fm := next.(pickerModel)
	assert.False(t, fm.accepted)
}

func TestChoose_UnknownName(t *testing.T) {
	_, err := Choose("dmenu")
	require.Error(t, err)
	assert.Equal(t, nserrors.ErrCodeNoSelector, nserrors.GetCode(err))
}

func TestChoose_TUIAlwaysAvailable(t *testing.T) {
	s, err := Choose("tui")
	require.NoError(t, err)
	assert.IsType(t, &TUI{}, s)
}
