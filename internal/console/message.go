package console

// Role identifies who authored a timeline message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TimestampLayout is the wall-clock format stamped on every message.
const TimestampLayout = "15:04"

// Message is one immutable timeline entry.
type Message struct {
	ID        uint64
	Role      Role
	Content   *string
	Timestamp string
}

// Text returns the content or an empty string for content-less messages.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}
