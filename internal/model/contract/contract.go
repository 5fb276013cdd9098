package contract

// Roles accepted in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model    string    `json:"model"`
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
	// JSON asks the provider for a JSON object reply where supported.
	JSON bool `json:"json,omitempty"`
}

type CompletionResponse struct {
	Content string `json:"content"`
}
