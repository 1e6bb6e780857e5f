package domain

// Message roles. These are the only values a conversation turn may carry.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn. Only role and content are persisted;
// token estimates are recomputed from content on load.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
