package domain

// Role classifies a transcript entry for display.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RolePending   Role = "pending"
	RoleError     Role = "error"
	// RoleBot is used for notices that are not model output, such as the
	// greeting and the missing-credential warning.
	RoleBot Role = "bot"
)

// Message is a single transcript entry.
type Message struct {
	ID        string
	Role      Role
	Text      string
	RequestID string
}
