package openai

import "aichecker-backend/internal/llm"

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

// BuildPrompt creates the chat messages for one detection request.
func BuildPrompt(input llm.Input) []Message {
	return []Message{
		{Role: "system", Content: llm.SystemPrompt},
		{Role: "user", Content: llm.UserPrompt(input)},
	}
}
