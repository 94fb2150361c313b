package tui

import (
	"fmt"
	"strings"
	"testing"

	"agentdesk/internal/console"
)

func TestChatModelRenderUsesViewportAndScroll(t *testing.T) {
	t.Parallel()

	chat := NewChatModel(0)
	chat.SetViewportHeight(3)
	theme := ResolveTheme("dark")

	for i := 1; i <= 5; i++ {
		chat.Append("user", fmt.Sprintf("m%d", i), "")
	}

	rendered := chat.Render(80, theme, "")
	if strings.Contains(rendered, "m1") || strings.Contains(rendered, "m2") {
		t.Fatalf("expected initial render at bottom, got %q", rendered)
	}
	if !strings.Contains(rendered, "m3") || !strings.Contains(rendered, "m5") {
		t.Fatalf("expected bottom window to include m3..m5, got %q", rendered)
	}

	chat.ScrollUp(2)
	rendered = chat.Render(80, theme, "")
	if !strings.Contains(rendered, "m1") || !strings.Contains(rendered, "m3") {
		t.Fatalf("expected scrolled render to include m1..m3, got %q", rendered)
	}
	if strings.Contains(rendered, "m5") {
		t.Fatalf("expected scrolled render to exclude m5, got %q", rendered)
	}
}

func TestChatModelSyncSkipsEmptyContent(t *testing.T) {
	t.Parallel()

	hello := "hello"
	blank := "   "
	chat := NewChatModel(0)
	chat.Sync([]console.Message{
		{ID: 1, Role: console.RoleAssistant, Content: &hello, Timestamp: "09:30"},
		{ID: 2, Role: console.RoleAssistant, Content: nil, Timestamp: "09:31"},
		{ID: 3, Role: console.RoleSystem, Content: &blank, Timestamp: "09:31"},
	})

	got := chat.Messages()
	if len(got) != 1 {
		t.Fatalf("messages = %#v, want one", got)
	}
	if got[0].Role != "assistant" || got[0].Content != "hello" || got[0].Timestamp != "09:30" {
		t.Fatalf("message = %#v", got[0])
	}

	rendered := chat.Render(80, ResolveTheme("dark"), "")
	if !strings.Contains(rendered, "[09:30]") || !strings.Contains(rendered, "assistant:") {
		t.Fatalf("render = %q, want timestamped assistant prefix", rendered)
	}
}

func TestChatModelWrapCountsWrappedLines(t *testing.T) {
	t.Parallel()

	chat := NewChatModel(0)
	chat.SetWrapWidth(10)
	chat.SetViewportHeight(2)
	chat.Append("assistant", "alpha beta gamma delta epsilon", "")

	if got := chat.totalRenderedLines(); got < 3 {
		t.Fatalf("totalRenderedLines = %d, want wrapped lines", got)
	}
	rendered := chat.Render(80, ResolveTheme("dark"), "")
	if !strings.Contains(rendered, "epsilon") {
		t.Fatalf("render = %q, want last wrapped line at bottom", rendered)
	}
}

func TestChatModelRenderShowsTypingIndicator(t *testing.T) {
	t.Parallel()

	chat := NewChatModel(0)
	rendered := chat.Render(80, ResolveTheme("light"), "agent is typing...")
	if !strings.Contains(rendered, "agent is typing...") {
		t.Fatalf("render = %q, want typing indicator", rendered)
	}
	if len(chat.Messages()) != 0 {
		t.Fatalf("typing indicator must not be stored as a message")
	}
}

func TestChatModelRetentionLimit(t *testing.T) {
	t.Parallel()

	chat := NewChatModel(2)
	chat.Append("user", "one", "")
	chat.Append("user", "two", "")
	chat.Append("user", "three", "")

	got := chat.Messages()
	if len(got) != 2 || got[0].Content != "two" || got[1].Content != "three" {
		t.Fatalf("messages = %#v, want last two", got)
	}
}
