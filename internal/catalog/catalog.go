package catalog

import (
	"fmt"
	"strings"

	"agentdesk/internal/turn"
)

// Agent is one entry in the portal.
type Agent struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Color       string
	Status      string

	// RecordTrigger and RecordTemplate feed the console's fallback record
	// heuristic. Agents without a trigger never synthesize records.
	RecordTrigger  string
	RecordTemplate turn.Record
	RecordIDPrefix string
}

// Greeting is the synthesized first message of a new session.
func (a Agent) Greeting() string {
	return fmt.Sprintf("%s is ready. What can I help you with?", a.Name)
}

var agents = []Agent{
	{
		ID:            "logistics",
		Name:          "Shipping Slip Agent",
		Description:   "Creates slips, changes addresses and checks delivery status.",
		Icon:          "▣",
		Color:         "#4F46E5",
		Status:        "Ready",
		RecordTrigger: "Sapporo",
		RecordTemplate: turn.Record{
			Origin:      "Tokyo, Chiyoda",
			Destination: "Sapporo, Hokkaido",
			Status:      "test slip",
			Note:        "auto-recorded",
		},
		RecordIDPrefix: "TEST-",
	},
	{
		ID:          "inventory",
		Name:        "Inventory Agent",
		Description: "Allocates stock, forecasts shortages and schedules transfers between warehouses.",
		Icon:        "▤",
		Color:       "#059669",
		Status:      "Ready",
	},
}

// Agents returns the catalog in display order.
func Agents() []Agent {
	out := make([]Agent, len(agents))
	copy(out, agents)
	return out
}

// FindAgent looks an agent up by ID, case-insensitively.
func FindAgent(id string) (Agent, bool) {
	id = strings.TrimSpace(id)
	for _, a := range agents {
		if strings.EqualFold(a.ID, id) {
			return a, true
		}
	}
	return Agent{}, false
}

// ToolInfo is the human-facing description of a tool.
type ToolInfo struct {
	Name        string
	Title       string
	Description string
	Icon        string
	// Sensitive tools change data when approved.
	Sensitive bool
}

const (
	genericToolIcon        = "◆"
	genericToolDescription = "Do you want to run this action?"
)

var tools = map[string]ToolInfo{
	"search_slip_info": {
		Name:        "search_slip_info",
		Title:       "Look up slip information",
		Description: "Fetches the current delivery status and details of the given slip.",
		Icon:        "⌕",
	},
	"create_investigation_report": {
		Name:        "create_investigation_report",
		Title:       "Create investigation report",
		Description: "Adds a new investigation record to the sheet and saves the change.",
		Icon:        "✎",
		Sensitive:   true,
	},
}

// LookupTool returns display metadata for name. Unknown tools fall back to
// the raw name with a generic icon and description.
func LookupTool(name string) ToolInfo {
	if info, ok := tools[name]; ok {
		return info
	}
	return ToolInfo{
		Name:        name,
		Title:       name,
		Description: genericToolDescription,
		Icon:        genericToolIcon,
	}
}
