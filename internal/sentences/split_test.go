package sentences

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "whitespace only", in: "  \n\t  ", want: nil},
		{name: "no boundary", in: "Hello world", want: []string{"Hello world"}},
		{name: "trimmed single", in: "   Hello world.  ", want: []string{"Hello world."}},
		{name: "three letters", in: "A. B. C.", want: []string{"A.", "B.", "C."}},
		{
			name: "mixed terminals",
			in:   "Is it done? Yes! It is. Good.",
			want: []string{"Is it done?", "Yes!", "It is.", "Good."},
		},
		{
			name: "lowercase after abbreviation",
			in:   "We need approx. five minutes, e.g. the short version. Then we leave.",
			want: []string{"We need approx. five minutes, e.g. the short version.", "Then we leave."},
		},
		{name: "decimal number", in: "Pi is 3.14 roughly. Nice.", want: []string{"Pi is 3.14 roughly.", "Nice."}},
		{name: "no whitespace after period", in: "Visit example.Com today", want: []string{"Visit example.Com today"}},
		{
			name: "runs of punctuation and newlines",
			in:   "Wait... What?!\n\nNo way.",
			want: []string{"Wait...", "What?!", "No way."},
		},
		{name: "unicode uppercase", in: "Fin. Élan vital.", want: []string{"Fin.", "Élan vital."}},
		{name: "digit after boundary", in: "Done. 42 is next.", want: []string{"Done. 42 is next."}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Split(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitTitleAbbreviationFollowsRule(t *testing.T) {
	// "Dr." followed by a capitalised name matches the boundary rule.
	got := Split("Dr. Smith went home.")
	want := []string{"Dr.", "Smith went home."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split = %#v, want %#v", got, want)
	}
}
