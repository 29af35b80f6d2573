package llm

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the full input to a completion call. SystemPrompt, when set,
// is sent ahead of Messages.
type Prompt struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
}

// UserPrompt builds the common single-question prompt shape: one system
// instruction followed by one user message.
func UserPrompt(system, content string) Prompt {
	return Prompt{
		SystemPrompt: system,
		Messages: []Message{
			{Role: RoleUser, Content: content},
		},
	}
}
