package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var accentColor = lipgloss.Color("#05ffa1")

type theme struct {
	header    lipgloss.Style
	status    lipgloss.Style
	errStatus lipgloss.Style
	panel     lipgloss.Style
	chatRow   lipgloss.Style
	chatPick  lipgloss.Style
	chatMuted lipgloss.Style
	sender    lipgloss.Style
	inputBox  lipgloss.Style
	footer    lipgloss.Style
	modal     lipgloss.Style
}

func newTheme() theme {
	blue := lipgloss.Color("#01cdfe")
	pink := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#9ca3d8")

	return theme{
		header: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true).
			Padding(0, 1),
		status:    lipgloss.NewStyle().Foreground(accentColor),
		errStatus: lipgloss.NewStyle().Foreground(pink).Bold(true),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		chatRow:   lipgloss.NewStyle(),
		chatPick:  lipgloss.NewStyle().Foreground(pink).Bold(true),
		chatMuted: lipgloss.NewStyle().Foreground(muted),
		sender:    lipgloss.NewStyle().Foreground(accentColor).Bold(true),
		inputBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1),
		footer: lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		modal: lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(pink).
			Padding(1, 2),
	}
}

const (
	chatListShare = 3 // chat list takes width/chatListShare
	chromeHeight  = 7 // header + input box + footer + panel borders
)

func (m *Model) resize() {
	listWidth := m.width / chatListShare
	m.msgView.Width = maxInt(10, m.width-listWidth-6)
	m.msgView.Height = maxInt(3, m.height-chromeHeight)
	m.input.Width = maxInt(10, m.width-8)
}

func (m Model) View() string {
	if !m.sized {
		return "starting..."
	}
	if m.quitConfirm {
		return m.renderQuitModal()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.renderChatList(),
			m.theme.panel.Render(m.msgView.View()),
		),
		m.theme.inputBox.Render(m.input.View()),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	status := m.statusLine
	style := m.theme.status
	if m.app.Disconnected || strings.HasPrefix(status, "error") {
		style = m.theme.errStatus
	}
	left := m.theme.header.Render("tg9")
	if m.busy() {
		status = m.spinner.View() + " " + status
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, left, style.Render(status))
}

func (m Model) renderChatList() string {
	listWidth := maxInt(16, m.width/chatListShare)
	rows := make([]string, 0, m.app.Len()+1)

	if m.app.Len() == 0 {
		rows = append(rows, m.theme.chatMuted.Render("no chats yet"))
	}
	for i, c := range m.app.Chats() {
		marker := "  "
		style := m.theme.chatRow
		if i == m.app.Selected {
			marker = "* "
			style = m.theme.chatPick
		}
		badge := ""
		switch {
		case c.Loading:
			badge = " …"
		case c.LastErr != "":
			badge = " !"
		case c.Placeholder:
			badge = " ?"
		}
		title := truncate(c.Info.Title, listWidth-6)
		rows = append(rows, style.Render(marker+title+badge))
		if c.Info.Preview != "" {
			rows = append(rows, m.theme.chatMuted.Render("   "+truncate(c.Info.Preview, listWidth-5)))
		}
	}

	body := strings.Join(rows, "\n")
	return m.theme.panel.
		Width(listWidth).
		Height(maxInt(3, m.height-chromeHeight)).
		Render(body)
}

// fillMessages rebuilds the message pane from the active chat's cache.
func (m *Model) fillMessages() {
	c, ok := m.app.SelectedChat()
	if !ok {
		m.msgView.SetContent(m.theme.chatMuted.Render("select a chat (up/down)"))
		return
	}

	width := maxInt(16, m.msgView.Width)
	lines := make([]string, 0, c.Cache.Len()*2)
	if c.LastErr != "" {
		lines = append(lines, m.theme.errStatus.Render("! "+c.LastErr))
	}
	if c.Exhausted {
		lines = append(lines, m.theme.chatMuted.Render("· beginning of history ·"))
	}
	for _, msg := range c.Cache.Messages() {
		stamp := ""
		if !msg.SentAt.IsZero() {
			stamp = msg.SentAt.Local().Format("15:04") + " "
		}
		head := m.theme.chatMuted.Render(stamp) + m.theme.sender.Render(msg.Sender)
		lines = append(lines, head)
		for _, row := range wrapText(msg.Text, width) {
			lines = append(lines, "  "+row)
		}
	}
	m.msgView.SetContent(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	help := "up/down chats · enter send · pgup history · r refresh · esc quit"
	if m.app.Disconnected {
		help = "live updates disconnected · esc quit"
	}
	if n := m.app.Dropped; n > 0 {
		help += fmt.Sprintf(" · %d stray events", n)
	}
	return m.theme.footer.Render(help)
}

func (m Model) renderQuitModal() string {
	box := m.theme.modal.Render("quit tg9? (y/n)")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	if limit <= 1 {
		return "…"
	}
	return text[:limit-1] + "…"
}

func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := []string{}
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
