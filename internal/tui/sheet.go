package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"agentdesk/internal/console"
)

const newRowMarker = "NEW"

// SheetModel renders the record sheet beside the chat.
type SheetModel struct {
	records []console.DisplayRecord
	// maxRows limits rendering to the most recent rows. 0 shows all rows.
	maxRows int
}

// Sync replaces the rows with the session's derived records.
func (m *SheetModel) Sync(records []console.DisplayRecord) {
	m.records = append(m.records[:0], records...)
}

// SetMaxRows limits how many trailing rows are drawn.
func (m *SheetModel) SetMaxRows(rows int) {
	if rows < 0 {
		rows = 0
	}
	m.maxRows = rows
}

// Records returns a copy of the current rows.
func (m SheetModel) Records() []console.DisplayRecord {
	return append([]console.DisplayRecord(nil), m.records...)
}

// Render draws the sheet panel.
func (m SheetModel) Render(width int, theme Theme) string {
	lines := []string{theme.HeaderStyle.Render(fmt.Sprintf("Records (%d)", len(m.records)))}
	if len(m.records) == 0 {
		lines = append(lines, theme.MutedStyle.Render("No records yet."))
		return renderPanel(width, theme.SheetStyle, strings.Join(lines, "\n"))
	}

	rows := m.records
	if m.maxRows > 0 && len(rows) > m.maxRows {
		rows = rows[len(rows)-m.maxRows:]
	}
	for _, record := range rows {
		lines = append(lines, renderRecord(record, theme)...)
	}
	return renderPanel(width, theme.SheetStyle, strings.Join(lines, "\n"))
}

func renderRecord(record console.DisplayRecord, theme Theme) []string {
	style := lipgloss.NewStyle()
	id := fallbackText(record.ID, "(no id)")
	if record.IsNew {
		style = theme.NewRowStyle
		id += " " + newRowMarker
	}
	route := fallbackText(record.Origin, "?") + " → " + fallbackText(record.Destination, "?")
	lines := []string{
		style.Render(id),
		"  " + route,
		"  " + theme.MutedStyle.Render(fallbackText(record.Status, "-")),
	}
	if note := strings.TrimSpace(record.Note); note != "" {
		lines = append(lines, "  "+theme.MutedStyle.Render(note))
	}
	return lines
}
