// Package memory implements the two memory tiers consulted during a
// conversation: a per-session rolling buffer that summarizes itself in
// the background (short-term), and a vector store of durable facts
// about the client (long-term).
package memory

import "strings"

// Role identifies who produced a buffered message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleSummary marks the single synthetic message that stands in
	// for pruned history.
	RoleSummary Role = "summary"
)

// Message is one entry in a conversation buffer.
type Message struct {
	Role    Role
	Content string
}

// FormatHistory renders messages as one "role: content" line each,
// the shape the prompt builders expect.
func FormatHistory(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	lines := make([]string, len(messages))
	for i, m := range messages {
		switch m.Role {
		case RoleSummary:
			lines[i] = "summary of earlier conversation: " + m.Content
		default:
			lines[i] = string(m.Role) + ": " + m.Content
		}
	}
	return strings.Join(lines, "\n")
}
