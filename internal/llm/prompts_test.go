package llm

import (
	"strings"
	"testing"
)

func TestUserPrompt(t *testing.T) {
	got := UserPrompt(Input{Text: "  Hello there.  ", Purpose: "essay check", Context: "Hello there. Bye."})
	want := "Purpose: essay check\n\nText to analyze:\nHello there.\n\nSurrounding context"
	if !strings.HasPrefix(got, want) {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
	if !strings.HasSuffix(got, "Hello there. Bye.") {
		t.Fatalf("context missing from prompt:\n%s", got)
	}
}

func TestUserPromptWithoutOptionalParts(t *testing.T) {
	got := UserPrompt(Input{Text: "just text"})
	if got != "Text to analyze:\njust text" {
		t.Fatalf("unexpected prompt %q", got)
	}
}
