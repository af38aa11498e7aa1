package explore

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carmen-go/gridcoalesce/internal/gridstore"
)

// Model is a master/detail bubbletea model over a set of CoalesceContext
// results: a scrollable list of contexts on the left, the selected
// context's entries scrolled through a viewport on the right.
type Model struct {
	label    string
	contexts []gridstore.CoalesceContext
	cursor   int
	offset   int
	width    int
	height   int
	quitting bool
	styles   Styles
	detail   viewport.Model
	ready    bool
}

// New creates an explore Model over the given contexts.
func New(label string, contexts []gridstore.CoalesceContext) Model {
	return Model{
		label:    label,
		contexts: contexts,
		styles:   DefaultStyles(),
		width:    80,
		height:   24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var detailCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			m.adjustOffset()
			m.syncDetail()
		case "down", "j":
			if m.cursor < len(m.contexts)-1 {
				m.cursor++
			}
			m.adjustOffset()
			m.syncDetail()
		case "g", "home":
			m.cursor = 0
			m.offset = 0
			m.syncDetail()
		case "G", "end":
			if len(m.contexts) > 0 {
				m.cursor = len(m.contexts) - 1
			}
			m.adjustOffset()
			m.syncDetail()
		default:
			m.detail, detailCmd = m.detail.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeDetail()
		m.syncDetail()
		m.ready = true
	}

	return m, detailCmd
}

// listHeight returns the number of context rows the left pane can show.
func (m *Model) listHeight() int {
	h := m.height - 4
	if h < 3 {
		h = 3
	}
	return h
}

// adjustOffset scrolls the list so the cursor stays visible.
func (m *Model) adjustOffset() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

// resizeDetail fits the detail viewport to the current terminal size.
func (m *Model) resizeDetail() {
	detailWidth := m.width - m.width/2 - 6
	if detailWidth < 20 {
		detailWidth = 20
	}
	m.detail = viewport.New(detailWidth, m.listHeight())
}

// syncDetail loads the selected context's rendering into the viewport,
// resetting scroll position to the top.
func (m *Model) syncDetail() {
	m.detail.SetContent(m.renderDetail())
	m.detail.GotoTop()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.styles.Dim.Render("loading…")
	}

	header := m.styles.Header.Render(fmt.Sprintf("%s — %d context(s)", m.label, len(m.contexts)))

	listWidth := m.width / 2
	if listWidth < 24 {
		listWidth = 24
	}

	list := m.styles.Panel.Width(listWidth).Height(m.listHeight()).Render(m.renderList())
	detail := m.styles.Panel.Width(m.detail.Width).Height(m.listHeight()).Render(m.detail.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
	footer := m.styles.Dim.Render("↑/↓ select · g/G first/last · pgup/pgdn scroll detail · q quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderList() string {
	if len(m.contexts) == 0 {
		return m.styles.Dim.Render("no contexts")
	}

	h := m.listHeight()
	end := m.offset + h
	if end > len(m.contexts) {
		end = len(m.contexts)
	}

	var lines []string
	for i := m.offset; i < end; i++ {
		c := m.contexts[i]
		row := fmt.Sprintf("%2d. relev=%.3f mask=%#x (%d entries)", i+1, c.Relev, c.Mask, len(c.Entries))
		if i == m.cursor {
			lines = append(lines, m.styles.Selected.Render(row))
		} else {
			lines = append(lines, m.styles.Value.Render(row))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDetail() string {
	if m.cursor >= len(m.contexts) {
		return m.styles.Dim.Render("nothing selected")
	}

	c := m.contexts[m.cursor]
	var lines []string
	lines = append(lines, m.styles.Label.Render("relev")+" "+m.styles.Value.Render(fmt.Sprintf("%.4f", c.Relev)))
	lines = append(lines, m.styles.Label.Render("mask")+"  "+m.styles.Value.Render(fmt.Sprintf("%#x", c.Mask)))
	lines = append(lines, "")

	for _, e := range c.Entries {
		lines = append(lines, m.styles.Label.Render(fmt.Sprintf("idx=%d id=%d", e.Idx, e.ID)))
		lines = append(lines, fmt.Sprintf("  tile=(%d,%d) tmp_id=%d", e.X, e.Y, e.TmpID))
		lines = append(lines, fmt.Sprintf("  relev=%.3f scoredist=%.3f lang=%v", e.Relev, e.Scoredist, e.MatchesLanguage))
	}

	return strings.Join(lines, "\n")
}
