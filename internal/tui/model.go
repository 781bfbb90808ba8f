// Package tui is the terminal chat surface. It is a thin shell over the
// assistant session: all calendar behavior lives in internal/assistant,
// the model here only renders state and relays user input.
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/VedPanse/siriplus/internal/assistant"
	"github.com/VedPanse/siriplus/internal/event"
)

// chatEntry is one bubble in the conversation.
type chatEntry struct {
	FromUser bool
	Text     string
}

// Model is the root bubbletea model.
type Model struct {
	session *assistant.Session

	entries  []chatEntry
	input    string
	thinking bool

	events           []event.Event
	permissionBanner bool

	errorMessage string

	width  int
	height int
}

// New creates the chat model over a session.
func New(session *assistant.Session) Model {
	return Model{session: session}
}

// replyMsg carries the assistant's reply for one turn.
type replyMsg struct {
	Text string
}

// refreshedMsg carries the result of a snapshot refresh.
type refreshedMsg struct {
	Events           []event.Event
	PermissionDenied bool
	Err              error
}

// Init loads today's events.
func (m Model) Init() tea.Cmd {
	return refreshCmd(m.session)
}

// refreshCmd re-fetches today's snapshot.
func refreshCmd(session *assistant.Session) tea.Cmd {
	return func() tea.Msg {
		err := session.RefreshEvents(context.Background())
		return refreshedMsg{
			Events:           session.Events(),
			PermissionDenied: session.PermissionDenied(),
			Err:              err,
		}
	}
}

// sendCmd runs one assistant turn.
func sendCmd(session *assistant.Session, text string) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{Text: session.HandleMessage(context.Background(), text)}
	}
}

// Update processes messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		m.thinking = false
		if msg.Text != "" {
			m.entries = append(m.entries, chatEntry{Text: msg.Text})
		}
		// The session refreshed its snapshot during the turn; pick it up.
		m.events = m.session.Events()
		m.permissionBanner = m.session.PermissionDenied()
		return m, nil

	case refreshedMsg:
		m.events = msg.Events
		m.permissionBanner = msg.PermissionDenied
		if msg.Err != nil && !msg.PermissionDenied {
			m.errorMessage = msg.Err.Error()
		} else {
			m.errorMessage = ""
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input)
		if text == "" || m.thinking {
			return m, nil
		}
		m.entries = append(m.entries, chatEntry{FromUser: true, Text: text})
		m.input = ""
		m.thinking = true
		return m, sendCmd(m.session, text)

	case tea.KeyBackspace:
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	case tea.KeyCtrlR:
		return m, refreshCmd(m.session)

	case tea.KeySpace:
		m.input += " "
		return m, nil

	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	}

	return m, nil
}

// View renders the full chat surface.
func (m Model) View() string {
	if m.width == 0 {
		return "Starting..."
	}

	var sections []string
	sections = append(sections, titleStyle.Render("SIRI++")+dimStyle.Render(" — calendar assistant"))

	if m.permissionBanner {
		sections = append(sections, bannerStyle.Render("Calendar access is not granted. Grant access, then press Ctrl+R."))
	}

	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderMain())
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, errorStyle.Render("Error: ")+m.errorMessage)
	}

	sections = append(sections, m.renderInput())
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderMain() string {
	sideW := m.sidePanelWidth()
	chatW := m.width - sideW - 1
	contentH := m.contentHeight()

	chatLines := m.chatLines(chatW, contentH)
	sideLines := m.sidebarLines(sideW, contentH)

	divider := dividerStyle.Render("│")
	var rows []string
	for i := 0; i < contentH; i++ {
		rows = append(rows, padRight(chatLines[i], chatW)+divider+sideLines[i])
	}
	return strings.Join(rows, "\n")
}

// chatLines renders the conversation bottom-anchored into exactly height
// lines.
func (m Model) chatLines(width, height int) []string {
	var lines []string
	if len(m.entries) == 0 {
		lines = append(lines, dimStyle.Render("  Ask me about your day, or tell me to schedule something."))
		lines = append(lines, dimStyle.Render(`  e.g. "Book lunch at noon for 30 minutes"`))
	}

	textWidth := max(10, width-12)
	for _, e := range m.entries {
		label := assistantLabelStyle.Render("Siri++  ")
		if e.FromUser {
			label = userLabelStyle.Render("You     ")
		}
		wrapped := wrapText(e.Text, textWidth)
		lines = append(lines, label+wrapped[0])
		for _, wl := range wrapped[1:] {
			lines = append(lines, strings.Repeat(" ", 8)+wl)
		}
	}

	if m.thinking {
		lines = append(lines, thinkingStyle.Render("Siri++  …"))
	}

	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}

// sidebarLines renders today's events into exactly height lines.
func (m Model) sidebarLines(width, height int) []string {
	lines := []string{panelTitleStyle.Render(" TODAY")}

	if len(m.events) == 0 {
		lines = append(lines, dimStyle.Render(" "+event.NoEventsSummary))
	} else {
		for _, ev := range m.events {
			lines = append(lines, truncateToWidth(" "+ev.Start.Format("3:04 PM")+"  "+ev.Title, width))
			if ev.Location != "" {
				lines = append(lines, dimStyle.Render(truncateToWidth("          @ "+ev.Location, width)))
			}
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, l := range lines {
		lines[i] = padRight(l, width)
	}
	return lines
}

func (m Model) renderInput() string {
	cursor := ""
	if !m.thinking {
		cursor = "▌"
	}
	return promptStyle.Render("> ") + m.input + cursor
}

func (m Model) renderFooter() string {
	parts := []string{
		footerKeyStyle.Render("Enter") + footerDescStyle.Render(" Send"),
		footerKeyStyle.Render("Ctrl+R") + footerDescStyle.Render(" Refresh"),
		footerKeyStyle.Render("Esc") + footerDescStyle.Render(" Quit"),
	}
	return strings.Join(parts, "  ")
}

func (m Model) sidePanelWidth() int {
	if m.width == 0 {
		return 30
	}
	return max(22, m.width*30/100)
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + dividers(2) + input(1) + footer(1) + slack.
	reserved := 6
	if m.permissionBanner {
		reserved++
	}
	if m.errorMessage != "" {
		reserved++
	}
	return max(5, m.height-reserved)
}

// Helpers

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			switch {
			case current == "":
				current = word
			case len(current)+1+len(word) <= width:
				current += " " + word
			default:
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
