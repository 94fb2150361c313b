package tui

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"agentdesk/internal/catalog"
	"agentdesk/internal/console"
)

// renderApprovalCard draws the pending invocation with its arguments and the
// decision keys.
func renderApprovalCard(inv console.Invocation, width int, theme Theme) string {
	info := catalog.LookupTool(inv.Name)

	title := info.Icon + " " + info.Title
	if info.Sensitive {
		title += " " + theme.MutedStyle.Render("(changes data)")
	}
	lines := []string{
		theme.HeaderStyle.Render(title),
		info.Description,
	}

	keys := make([]string, 0, len(inv.Arguments))
	for key := range inv.Arguments {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("  %s: %s", key, formatArgument(inv.Arguments[key])))
	}

	lines = append(lines, theme.MutedStyle.Render("[y] approve   [n] reject"))
	return renderPanel(width, theme.CardStyle, strings.Join(lines, "\n"))
}

func formatArgument(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}
