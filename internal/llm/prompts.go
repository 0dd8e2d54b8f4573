package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every remote analyzer call.
const SystemPrompt = `You are an AI-text detector. Decide whether the text you are given was written by an AI model or by a human.
Start your answer with a single line "VERDICT: LIKELY AI-GENERATED" or "VERDICT: LIKELY HUMAN-WRITTEN".
Then provide:
1. Confidence level (0-100%)
2. Key indicators that led to this conclusion
3. Specific evidence from the text
4. Likelihood percentages for both AI and human authorship
Answer in plain text, without markdown tables.`

// UserPrompt renders the per-request instruction.
func UserPrompt(input Input) string {
	var b strings.Builder
	if purpose := strings.TrimSpace(input.Purpose); purpose != "" {
		fmt.Fprintf(&b, "Purpose: %s\n\n", purpose)
	}
	b.WriteString("Text to analyze:\n")
	b.WriteString(strings.TrimSpace(input.Text))
	if ctx := strings.TrimSpace(input.Context); ctx != "" {
		b.WriteString("\n\nSurrounding context (do not judge it, use it only to interpret the text):\n")
		b.WriteString(ctx)
	}
	return b.String()
}
