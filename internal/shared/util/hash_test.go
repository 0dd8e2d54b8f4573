package util

import "testing"

func TestSHA256Hex(t *testing.T) {
	got := SHA256Hex("hello")
	if got != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Fatalf("unexpected hash: %s", got)
	}
	if len(SHA256Hex("")) != 64 {
		t.Fatalf("expected 64 hex characters")
	}
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "newlines flattened", in: " line one\nline two\r\n", max: 100, want: "line one line two"},
		{name: "truncated", in: "abcdefgh", max: 5, want: "abcde"},
		{name: "no limit", in: "abcdefgh", max: 0, want: "abcdefgh"},
		{name: "rune boundary", in: "aé", max: 2, want: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeMessage(tt.in, tt.max); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
