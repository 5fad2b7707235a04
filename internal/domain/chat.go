package domain

const (
	ChatRoleSystem = "system"
	ChatRoleUser   = "user"
)

// ChatMessage is the provider-agnostic chat message shape sent to the
// completions endpoint.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
