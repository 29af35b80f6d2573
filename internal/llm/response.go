package llm

// Response wraps a completion result together with its token accounting.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
}

// TotalTokens is the combined prompt and completion token count.
func (r *Response) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}
