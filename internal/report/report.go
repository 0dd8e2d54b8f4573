// Package report renders heuristic and remote analysis results as plain text.
package report

import (
	"fmt"
	"strings"

	"aichecker-backend/internal/heuristic"
)

// Separator divides report sections.
var Separator = strings.Repeat("━", 40)

const (
	localNote       = "Note: This is a local heuristic-based analysis."
	emptyRemote     = "No analysis result received from the remote analyzer."
	sentencePreview = 100
)

// FormatScore renders a local heuristic evaluation.
func FormatScore(ev heuristic.Evaluation) string {
	m, s := ev.Metrics, ev.Score
	verdict := "LIKELY HUMAN-WRITTEN"
	if s.IsAI {
		verdict = "LIKELY AI-GENERATED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "VERDICT: %s\n\n", verdict)
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", s.Confidence)
	fmt.Fprintf(&b, "AI Probability: %.1f%%\n", s.AIProbability)
	fmt.Fprintf(&b, "Human Probability: %.1f%%\n\n", s.HumanProbability)
	b.WriteString(Separator + "\n\n")
	b.WriteString("TEXT ANALYSIS\n\n")
	fmt.Fprintf(&b, "Word Count: %d\n", m.WordCount)
	fmt.Fprintf(&b, "Sentence Count: %d\n", m.SentenceCount)
	fmt.Fprintf(&b, "Avg Words per Sentence: %.1f\n\n", m.AvgWordsPerSentence)
	b.WriteString("DETAILED METRICS\n\n")
	fmt.Fprintf(&b, "• Sentence Length Variance: %.2f\n", m.SentenceLengthVariance)
	fmt.Fprintf(&b, "• Word Repetition: %.1f%%\n", m.RepetitionScore*100)
	fmt.Fprintf(&b, "• Transition Phrases: %d\n", m.TransitionCount)
	fmt.Fprintf(&b, "• Punctuation Variety: %d\n", m.PunctuationVariety)
	fmt.Fprintf(&b, "• Paragraph Breaks: %d\n", m.ParagraphBreaks)
	fmt.Fprintf(&b, "• Complexity Ratio: %.1f%%\n\n", m.ComplexityRatio*100)
	b.WriteString(Separator + "\n\n")
	b.WriteString(localNote)
	return b.String()
}

// FormatRemote wraps a remote analyzer payload unless it already reads like a
// finished report.
func FormatRemote(result string) string {
	if strings.TrimSpace(result) == "" {
		return emptyRemote
	}
	for _, marker := range []string{"VERDICT", "verdict", "AI", "Human"} {
		if strings.Contains(result, marker) {
			return result
		}
	}
	return header("(Powered by the remote analyzer)") + result
}

// FormatFallback labels a local evaluation that stands in for a remote one.
func FormatFallback(reason string, ev heuristic.Evaluation) string {
	var b strings.Builder
	b.WriteString("LOCAL HEURISTIC FALLBACK\n")
	if reason = strings.TrimSpace(reason); reason != "" {
		b.WriteString(reason + "\n")
	}
	b.WriteString("\n")
	b.WriteString(FormatScore(ev))
	return b.String()
}

// Item is one sentence's outcome in a sentence-by-sentence run. Index is 1-based.
type Item struct {
	Index    int
	Sentence string
	Result   string
	Err      error
}

// Failed reports whether the sentence could not be analyzed.
func (it Item) Failed() bool { return it.Err != nil }

// FormatAggregated renders per-sentence results followed by a summary.
func FormatAggregated(items []Item, total int) string {
	var b strings.Builder
	b.WriteString(header(fmt.Sprintf("(Sentence-by-Sentence Analysis - %d sentence(s))", total)))

	if len(items) == 0 {
		b.WriteString("No results available.\n")
		return b.String()
	}

	failed := 0
	for _, it := range items {
		fmt.Fprintf(&b, "\n[Sentence %d/%d]\n", it.Index, total)
		fmt.Fprintf(&b, "\"%s\"\n\n", preview(it.Sentence))
		if it.Failed() {
			failed++
			fmt.Fprintf(&b, "Error: %s\n\n", it.Err.Error())
		} else {
			b.WriteString(it.Result + "\n\n")
		}
		b.WriteString(Separator + "\n\n")
	}

	b.WriteString("\nSUMMARY\n")
	fmt.Fprintf(&b, "Total Sentences: %d\n", total)
	fmt.Fprintf(&b, "Successfully Analyzed: %d\n", len(items)-failed)
	if failed > 0 {
		fmt.Fprintf(&b, "Failed: %d\n", failed)
	}
	return b.String()
}

func header(subtitle string) string {
	return Separator + "\n\n" + "AI DETECTION ANALYSIS\n" + subtitle + "\n\n" + Separator + "\n\n"
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= sentencePreview {
		return s
	}
	return string(r[:sentencePreview]) + "..."
}
