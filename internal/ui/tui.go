package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naragtive/naragtive/internal/query"
	"github.com/naragtive/naragtive/internal/search"
)

// outcomeMsg carries a dispatcher delivery into the update loop.
type outcomeMsg query.Outcome

// SearchModel is the interactive search screen. Typing a query and
// pressing enter dispatches it; typing a new one while the last is
// still running cancels it, so the screen only ever shows the outcome
// of the latest query.
type SearchModel struct {
	dispatcher *query.Dispatcher
	storeName  string
	opts       search.Options
	styles     Styles

	input     textinput.Model
	spin      spinner.Model
	width     int
	searching bool
	outcome   *query.Outcome
}

// NewSearchModel builds the interactive search model.
func NewSearchModel(dispatcher *query.Dispatcher, storeName string, opts search.Options) *SearchModel {
	input := textinput.New()
	input.Placeholder = "search scenes..."
	input.Focus()
	input.CharLimit = 256

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAmber))

	styles := DefaultStyles()
	if DetectNoColor() {
		styles = NoColorStyles()
	}

	return &SearchModel{
		dispatcher: dispatcher,
		storeName:  storeName,
		opts:       opts,
		styles:     styles,
		input:      input,
		spin:       spin,
	}
}

// Init implements tea.Model.
func (m *SearchModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForOutcome())
}

// waitForOutcome blocks on the dispatcher's delivery channel.
// Superseded queries never deliver, so one pending read is all the
// model needs regardless of how many queries were cancelled.
func (m *SearchModel) waitForOutcome() tea.Cmd {
	return func() tea.Msg {
		o, ok := <-m.dispatcher.Results()
		if !ok {
			return nil
		}
		return outcomeMsg(o)
	}
}

// Update implements tea.Model.
func (m *SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.dispatcher.Close()
			return m, tea.Quit

		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.dispatcher.Submit(context.Background(), m.storeName, text, m.opts)
			m.searching = true
			return m, m.spin.Tick
		}

	case outcomeMsg:
		o := query.Outcome(msg)
		m.outcome = &o
		m.searching = false
		return m, m.waitForOutcome()

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *SearchModel) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Header.Render(fmt.Sprintf("naragtive search: store %q", m.storeName)))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.searching:
		b.WriteString(m.spin.View() + s.Dim.Render(" searching..."))
		b.WriteString("\n")
	case m.outcome != nil:
		b.WriteString(m.renderOutcome())
	default:
		b.WriteString(s.Dim.Render("type a query and press enter"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.Dim.Render("enter: search  esc: quit"))
	return b.String()
}

func (m *SearchModel) renderOutcome() string {
	s := m.styles
	o := m.outcome
	var b strings.Builder

	if o.Err != nil {
		b.WriteString(s.Error.Render("error: " + o.Err.Error()))
		b.WriteString("\n")
		return b.String()
	}

	rs := o.Result
	if rs.Degraded {
		b.WriteString(s.Warning.Render("reranking unavailable, similarity order"))
		b.WriteString("\n")
	}
	if len(rs.Candidates) == 0 {
		b.WriteString(s.Dim.Render(fmt.Sprintf("no matches for %q", o.Query)))
		b.WriteString("\n")
		return b.String()
	}

	for i, cand := range rs.Candidates {
		b.WriteString(fmt.Sprintf("%s %s  %s\n",
			s.Dim.Render(fmt.Sprintf("%2d.", i+1)),
			s.Title.Render(cand.Record.ID),
			s.Score.Render(formatScores(&cand))))

		if meta := formatMetadata(&cand.Record.Metadata); meta != "" {
			b.WriteString("    " + s.Meta.Render(meta) + "\n")
		}
		b.WriteString("    " + snippet(cand.Record.Text) + "\n")
	}

	b.WriteString(s.Dim.Render(fmt.Sprintf("%d results for %q", len(rs.Candidates), o.Query)))
	b.WriteString("\n")
	return b.String()
}

// RunInteractive starts the TUI on the alternate screen and blocks
// until the user quits.
func RunInteractive(dispatcher *query.Dispatcher, storeName string, opts search.Options) error {
	model := NewSearchModel(dispatcher, storeName, opts)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
