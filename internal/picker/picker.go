// Package picker is a small terminal UI for choosing one bookmark out of a
// list of search results.
package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	matchStyle = lipgloss.NewStyle().
			Underline(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// KeyMap defines the picker key bindings.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding
	Open key.Binding
	Yank key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns vim-style bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "move down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Yank: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy url"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "cancel"),
		),
	}
}

// Picker is a simple TUI for selecting from search results.
type Picker struct {
	results   []search.Result
	paths     map[string]string
	query     string
	keys      KeyMap
	cursor    int
	selected  bool
	cancelled bool
	status    string
	width     int
	height    int

	copyText func(string) error
}

// New creates a new Picker with the given search results. paths maps a node
// id to the folder path shown beside it and may be nil.
func New(results []search.Result, query string, paths map[string]string) Picker {
	return Picker{
		results:  results,
		paths:    paths,
		query:    query,
		keys:     DefaultKeyMap(),
		width:    80,
		height:   24,
		copyText: clipboard.WriteAll,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Quit):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Open):
			if len(p.results) == 0 {
				return p, nil
			}
			p.selected = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}
			p.status = ""
			return p, nil

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
			p.status = ""
			return p, nil

		case key.Matches(msg, p.keys.Yank):
			if p.cursor >= len(p.results) {
				return p, nil
			}
			if err := p.copyText(p.results[p.cursor].Node.URL); err != nil {
				p.status = "Copy failed: " + err.Error()
			} else {
				p.status = "Copied URL"
			}
			return p, nil
		}
	}

	return p, nil
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	// Keep the cursor row on screen; each result takes two lines.
	visible := max((p.height-6)/2, 1)
	start := 0
	if p.cursor >= visible {
		start = p.cursor - visible + 1
	}
	end := min(start+visible, len(p.results))

	for i := start; i < end; i++ {
		result := p.results[i]
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		line := cursor + highlight(search.Label(result.Node), result.MatchedIndexes, style)
		if path := p.paths[result.Node.ID]; path != "" {
			line += "  " + pathStyle.Render(path)
		}
		b.WriteString(line + "\n")
		b.WriteString(fmt.Sprintf("   %s\n", urlStyle.Render(result.Node.URL)))
	}

	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(statusStyle.Render(p.status) + "\n")
	}
	b.WriteString(hintStyle.Render(p.help()))

	return b.String()
}

func (p Picker) help() string {
	bindings := []key.Binding{p.keys.Down, p.keys.Open, p.keys.Yank, p.keys.Quit}
	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		h := kb.Help()
		parts[i] = h.Key + ": " + h.Desc
	}
	return strings.Join(parts, "  ")
}

// highlight renders label with the fuzzy-matched bytes underlined.
func highlight(label string, matched []int, style lipgloss.Style) string {
	matchSet := make(map[int]bool, len(matched))
	for _, idx := range matched {
		matchSet[idx] = true
	}

	var b strings.Builder
	for i, r := range label {
		if matchSet[i] {
			b.WriteString(matchStyle.Inherit(style).Render(string(r)))
		} else {
			b.WriteString(style.Render(string(r)))
		}
	}
	return b.String()
}

// Selected returns the chosen node; ok is false if the picker was cancelled.
func (p Picker) Selected() (n model.Node, ok bool) {
	if p.cancelled || !p.selected {
		return model.Node{}, false
	}
	if p.cursor < len(p.results) {
		return p.results[p.cursor].Node, true
	}
	return model.Node{}, false
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
