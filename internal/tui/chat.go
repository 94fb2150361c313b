package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"agentdesk/internal/console"
)

const defaultChatLimit = 500

// ChatMessage is one rendered chat item.
type ChatMessage struct {
	Role      string
	Content   string
	Timestamp string
}

// ChatModel stores timeline messages for display.
type ChatModel struct {
	messages    []ChatMessage
	maxMessages int
	scrollTop   int

	// viewportHeight is the number of visible content lines inside the chat panel.
	// 0 means unconstrained.
	viewportHeight int
	// wrapWidth is the content width used for word wrapping. 0 disables wrapping.
	wrapWidth int
}

// NewChatModel creates a chat buffer with retention limit.
func NewChatModel(maxMessages int) ChatModel {
	limit := maxMessages
	if limit <= 0 {
		limit = defaultChatLimit
	}
	return ChatModel{maxMessages: limit}
}

// Append records one message when content is non-empty.
func (m *ChatModel) Append(role, content, timestamp string) {
	text := strings.TrimSpace(content)
	if text == "" {
		return
	}
	wasAtBottom := m.isAtBottom()

	m.messages = append(m.messages, ChatMessage{
		Role:      strings.TrimSpace(role),
		Content:   text,
		Timestamp: strings.TrimSpace(timestamp),
	})

	if overflow := len(m.messages) - m.maxMessages; overflow > 0 {
		m.messages = append([]ChatMessage(nil), m.messages[overflow:]...)
	}
	if wasAtBottom {
		m.scrollToBottom()
		return
	}
	m.clampScrollTop()
}

// Sync replaces the buffer with the session timeline. The viewport stays
// pinned to the bottom when it was there before.
func (m *ChatModel) Sync(timeline []console.Message) {
	wasAtBottom := m.isAtBottom()
	m.messages = m.messages[:0]
	for _, msg := range timeline {
		text := strings.TrimSpace(msg.Text())
		if text == "" {
			continue
		}
		m.messages = append(m.messages, ChatMessage{
			Role:      string(msg.Role),
			Content:   text,
			Timestamp: msg.Timestamp,
		})
	}
	if overflow := len(m.messages) - m.maxMessages; overflow > 0 {
		m.messages = append([]ChatMessage(nil), m.messages[overflow:]...)
	}
	if wasAtBottom {
		m.scrollToBottom()
		return
	}
	m.clampScrollTop()
}

// Messages returns a defensive copy of buffered messages.
func (m ChatModel) Messages() []ChatMessage {
	return append([]ChatMessage(nil), m.messages...)
}

// Clear removes all buffered chat messages.
func (m *ChatModel) Clear() {
	m.messages = nil
	m.scrollTop = 0
}

// SetViewportHeight configures the visible line count for chat content.
func (m *ChatModel) SetViewportHeight(height int) {
	if height < 0 {
		height = 0
	}
	m.viewportHeight = height
	m.clampScrollTop()
}

// SetWrapWidth configures the content width used for word wrapping.
func (m *ChatModel) SetWrapWidth(width int) {
	if width < 0 {
		width = 0
	}
	wasAtBottom := m.isAtBottom()
	m.wrapWidth = width
	if wasAtBottom {
		m.scrollToBottom()
		return
	}
	m.clampScrollTop()
}

// ScrollUp moves the chat viewport up by lines.
func (m *ChatModel) ScrollUp(lines int) {
	if lines <= 0 {
		return
	}
	m.scrollTop -= lines
	m.clampScrollTop()
}

// ScrollDown moves the chat viewport down by lines.
func (m *ChatModel) ScrollDown(lines int) {
	if lines <= 0 {
		return
	}
	m.scrollTop += lines
	m.clampScrollTop()
}

// PageUp scrolls one viewport up.
func (m *ChatModel) PageUp() {
	step := m.viewportHeight
	if step <= 0 {
		step = 10
	}
	m.ScrollUp(step)
}

// PageDown scrolls one viewport down.
func (m *ChatModel) PageDown() {
	step := m.viewportHeight
	if step <= 0 {
		step = 10
	}
	m.ScrollDown(step)
}

// ScrollToTop jumps to the top of buffered chat lines.
func (m *ChatModel) ScrollToTop() {
	m.scrollTop = 0
}

// ScrollToBottom jumps to the most recent chat lines.
func (m *ChatModel) ScrollToBottom() {
	m.scrollToBottom()
}

// Render draws chat lines inside a panel. typing, when non-empty, is shown as
// a trailing indicator line that is never part of the timeline.
func (m ChatModel) Render(width int, theme Theme, typing string) string {
	if len(m.messages) == 0 && typing == "" {
		return renderPanel(width, theme.PanelStyle, "No messages yet.")
	}

	lines := m.renderLines(theme)
	if m.viewportHeight > 0 && len(lines) > m.viewportHeight {
		start := m.scrollTop
		maxTop := len(lines) - m.viewportHeight
		if start < 0 {
			start = 0
		}
		if start > maxTop {
			start = maxTop
		}
		end := start + m.viewportHeight
		lines = lines[start:end]
	}
	if typing != "" {
		if m.viewportHeight > 0 && len(lines) >= m.viewportHeight && len(lines) > 0 {
			lines = lines[1:]
		}
		lines = append(lines, theme.MutedStyle.Render(typing))
	}

	return renderPanel(width, theme.PanelStyle, strings.Join(lines, "\n"))
}

func (m ChatModel) renderLines(theme Theme) []string {
	lines := make([]string, 0, len(m.messages))
	for _, message := range m.messages {
		prefix, style := rolePrefix(message.Role, theme)
		head := style.Render(prefix)
		if message.Timestamp != "" {
			head = theme.TimestampStyle.Render("["+message.Timestamp+"]") + " " + head
		}
		raw := strings.Split(m.wrap(message.Content), "\n")
		lines = append(lines, head+" "+raw[0])
		if len(raw) > 1 {
			lines = append(lines, raw[1:]...)
		}
	}
	return lines
}

func (m ChatModel) wrap(content string) string {
	if m.wrapWidth <= 0 {
		return content
	}
	return wordwrap.String(content, m.wrapWidth)
}

func rolePrefix(role string, theme Theme) (string, lipgloss.Style) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(console.RoleAssistant):
		return "assistant:", theme.AssistantPrefixStyle
	case string(console.RoleSystem):
		return "system:", theme.SystemPrefixStyle
	default:
		return "user:", theme.UserPrefixStyle
	}
}

func renderPanel(width int, style lipgloss.Style, content string) string {
	if width > 0 {
		return style.Width(width).Render(content)
	}
	return style.Render(content)
}

func (m *ChatModel) isAtBottom() bool {
	if m.viewportHeight <= 0 {
		return true
	}
	return m.scrollTop >= m.maxScrollTop()
}

func (m *ChatModel) maxScrollTop() int {
	if m.viewportHeight <= 0 {
		return 0
	}
	maxTop := m.totalRenderedLines() - m.viewportHeight
	if maxTop < 0 {
		return 0
	}
	return maxTop
}

func (m *ChatModel) scrollToBottom() {
	m.scrollTop = m.maxScrollTop()
}

func (m *ChatModel) clampScrollTop() {
	if m.scrollTop < 0 {
		m.scrollTop = 0
		return
	}
	maxTop := m.maxScrollTop()
	if m.scrollTop > maxTop {
		m.scrollTop = maxTop
	}
}

func (m *ChatModel) totalRenderedLines() int {
	total := 0
	for _, message := range m.messages {
		total += len(strings.Split(m.wrap(message.Content), "\n"))
	}
	return total
}
