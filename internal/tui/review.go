// Package tui implements the interactive adjustment review screen.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quillaudit/quill/internal/cli"
	"github.com/quillaudit/quill/internal/model"
	"github.com/quillaudit/quill/internal/service"
)

// keyMap defines the review screen's key bindings.
type keyMap struct {
	Accept key.Binding
	Reject key.Binding
	Next   key.Binding
	Prev   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Accept: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "accept"),
	),
	Reject: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reject"),
	),
	Next: key.NewBinding(
		key.WithKeys("n", "right", "tab"),
		key.WithHelp("n", "next"),
	),
	Prev: key.NewBinding(
		key.WithKeys("p", "left", "shift+tab"),
		key.WithHelp("p", "previous"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// reviewedMsg reports a completed review write.
type reviewedMsg struct {
	index  int
	status model.ReviewStatus
}

// reviewErrMsg reports a failed review write.
type reviewErrMsg struct {
	err error
}

// Model is the bubbletea model for reviewing pending adjustments one at a
// time.
type Model struct {
	storage     service.Storage
	statusLine  string
	adjustments []model.Adjustment
	viewport    viewport.Model
	index       int
	reviewed    int
	width       int
	ready       bool
	quitting    bool
}

// NewReview creates a review model over the given pending adjustments.
func NewReview(storage service.Storage, adjustments []model.Adjustment) Model {
	return Model{
		storage:     storage,
		adjustments: adjustments,
	}
}

// Reviewed returns how many adjustments were decided during the session.
func (m Model) Reviewed() int {
	return m.reviewed
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		headerHeight := 7
		footerHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.viewport.SetContent(m.detailContent())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Accept):
			return m, m.review(model.StatusAccepted)
		case key.Matches(msg, keys.Reject):
			return m, m.review(model.StatusRejected)
		case key.Matches(msg, keys.Next):
			m.move(1)
			return m, nil
		case key.Matches(msg, keys.Prev):
			m.move(-1)
			return m, nil
		}

	case reviewedMsg:
		m.adjustments[msg.index].Status = msg.status
		m.reviewed++
		m.statusLine = cli.FormatSuccess(fmt.Sprintf("Marked %q as %s", m.adjustments[msg.index].Title, msg.status))
		if m.done() {
			m.quitting = true
			return m, tea.Quit
		}
		m.advanceToPending()
		return m, nil

	case reviewErrMsg:
		m.statusLine = cli.FormatError("Review failed: " + msg.err.Error())
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return cli.FormatInfo(fmt.Sprintf("Reviewed %d adjustment(s).\n", m.reviewed))
	}
	if len(m.adjustments) == 0 {
		return cli.FormatInfo("No pending adjustments to review.\n")
	}

	adj := m.current()

	var header strings.Builder
	header.WriteString(cli.TitleStyle.Render(fmt.Sprintf("Adjustment %d of %d", m.index+1, len(m.adjustments))))
	header.WriteString("\n")
	header.WriteString(cli.BoldStyle.Render(adj.Title))
	header.WriteString("\n")
	header.WriteString(cli.SubtleStyle.Render(string(adj.Category)))
	header.WriteString("  ")
	header.WriteString(fmt.Sprintf("$%.2f", adj.Amount))
	header.WriteString("  ")
	header.WriteString(fmt.Sprintf("confidence %.0f%%", adj.Confidence*100))
	if adj.IsMaterial {
		header.WriteString("  ")
		header.WriteString(cli.MaterialStyle.Render("MATERIAL"))
	}
	header.WriteString("\n")
	header.WriteString(cli.SubtleStyle.Render(statusLabel(adj.Status)))
	header.WriteString("\n\n")

	footer := "\n" + cli.SubtleStyle.Render("a accept · r reject · n/p navigate · q quit")
	if m.statusLine != "" {
		footer += "\n" + m.statusLine
	}

	body := m.viewport.View()
	if !m.ready {
		body = m.detailContent()
	}

	return header.String() + body + footer
}

func (m *Model) move(delta int) {
	next := m.index + delta
	if next < 0 || next >= len(m.adjustments) {
		return
	}
	m.index = next
	m.statusLine = ""
	m.viewport.SetContent(m.detailContent())
	m.viewport.GotoTop()
}

// advanceToPending moves the cursor to the next undecided adjustment, if any.
func (m *Model) advanceToPending() {
	for i := range m.adjustments {
		idx := (m.index + i) % len(m.adjustments)
		if m.adjustments[idx].Pending() {
			m.index = idx
			m.viewport.SetContent(m.detailContent())
			m.viewport.GotoTop()
			return
		}
	}
}

func (m Model) done() bool {
	for i := range m.adjustments {
		if m.adjustments[i].Pending() {
			return false
		}
	}
	return true
}

func (m Model) current() *model.Adjustment {
	return &m.adjustments[m.index]
}

func (m Model) review(status model.ReviewStatus) tea.Cmd {
	adj := m.current()
	if !adj.Pending() {
		return nil
	}
	idx := m.index
	id := adj.ID
	storage := m.storage

	return func() tea.Msg {
		if err := storage.ReviewAdjustment(context.Background(), id, status, ""); err != nil {
			return reviewErrMsg{err: err}
		}
		return reviewedMsg{index: idx, status: status}
	}
}

func (m Model) detailContent() string {
	if len(m.adjustments) == 0 {
		return ""
	}
	adj := m.current()

	sections := []struct {
		title string
		body  string
	}{
		{"Narrative", adj.Narrative},
		{"Description", adj.Description},
		{"Reasoning", adj.Reasoning},
		{"Materiality", adj.MaterialityReason},
		{"Accounts", accountsLine(adj)},
	}

	var b strings.Builder
	for _, section := range sections {
		if strings.TrimSpace(section.body) == "" {
			continue
		}
		b.WriteString(cli.InfoStyle.Render(section.title))
		b.WriteString("\n")
		b.WriteString(section.body)
		b.WriteString("\n\n")
	}
	return b.String()
}

func accountsLine(adj *model.Adjustment) string {
	var parts []string
	if adj.DebitAccount != "" {
		parts = append(parts, "Dr "+adj.DebitAccount)
	}
	if adj.CreditAccount != "" {
		parts = append(parts, "Cr "+adj.CreditAccount)
	}
	if len(adj.AccountsAffected) > 0 {
		parts = append(parts, "Affected: "+strings.Join(adj.AccountsAffected, ", "))
	}
	return strings.Join(parts, "  ")
}

func statusLabel(status model.ReviewStatus) string {
	switch status {
	case model.StatusAccepted:
		return lipgloss.NewStyle().Foreground(cli.SuccessColor).Render("accepted")
	case model.StatusRejected:
		return lipgloss.NewStyle().Foreground(cli.ErrorColor).Render("rejected")
	case model.StatusModified:
		return "modified"
	case model.StatusPending:
		return "pending review"
	}
	return string(status)
}

// Run fetches the project's pending adjustments and starts the review
// program. Returns how many adjustments were decided.
func Run(ctx context.Context, storage service.Storage, projectID int64) (int, error) {
	pending := model.StatusPending
	adjustments, err := storage.GetAdjustments(ctx, service.AdjustmentFilter{
		ProjectID: &projectID,
		Status:    &pending,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load pending adjustments: %w", err)
	}
	if len(adjustments) == 0 {
		return 0, nil
	}

	program := tea.NewProgram(NewReview(storage, adjustments), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return 0, fmt.Errorf("review session failed: %w", err)
	}

	reviewed := 0
	if m, ok := final.(Model); ok {
		reviewed = m.Reviewed()
	}
	return reviewed, nil
}
