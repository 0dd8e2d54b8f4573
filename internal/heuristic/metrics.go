package heuristic

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"aichecker-backend/internal/textstats"
)

// MinWords is the smallest input the scorer will evaluate.
const MinWords = 10

// ErrInsufficientInput is returned for empty text or text shorter than MinWords.
var ErrInsufficientInput = errors.New("text is too short: provide at least 10 words for an accurate evaluation")

// Transitions are the connective words counted by the scorer.
var Transitions = []string{
	"however", "therefore", "moreover", "furthermore", "nevertheless",
	"consequently", "additionally", "similarly", "conversely", "indeed",
}

var (
	sentenceDelims   = regexp.MustCompile(`[.!?]+`)
	nonWordChars     = regexp.MustCompile(`[^A-Za-z0-9_]`)
	paragraphBreaks  = regexp.MustCompile(`\n\n+`)
	transitionByWord = compileTransitions(Transitions)
)

// TextMetrics is the lexical snapshot a score is derived from.
type TextMetrics struct {
	WordCount              int     `json:"wordCount"`
	SentenceCount          int     `json:"sentenceCount"`
	AvgWordsPerSentence    float64 `json:"avgWordsPerSentence"`
	AvgWordLength          float64 `json:"avgWordLength"`
	SentenceLengthVariance float64 `json:"sentenceLengthVariance"`
	RepetitionScore        float64 `json:"repetitionScore"`
	TransitionCount        int     `json:"transitionCount"`
	ExclamationCount       int     `json:"exclamationCount"`
	QuestionCount          int     `json:"questionCount"`
	PunctuationVariety     int     `json:"punctuationVariety"`
	ParagraphBreaks        int     `json:"paragraphBreaks"`
	ComplexSentences       int     `json:"complexSentences"`
	ComplexityRatio        float64 `json:"complexityRatio"`
	WordLengthVariance     float64 `json:"wordLengthVariance"`
}

// ComputeMetrics derives TextMetrics from raw text.
func ComputeMetrics(text string) (TextMetrics, error) {
	if strings.TrimSpace(text) == "" {
		return TextMetrics{}, ErrInsufficientInput
	}
	words := strings.Fields(text)
	if len(words) < MinWords {
		return TextMetrics{}, ErrInsufficientInput
	}

	sentences := splitSentenceFragments(text)
	m := TextMetrics{
		WordCount:     len(words),
		SentenceCount: len(sentences),
	}

	wordLengths := make([]int, len(words))
	frequency := make(map[string]int, len(words))
	totalLength := 0
	for i, w := range words {
		n := utf8.RuneCountInString(w)
		wordLengths[i] = n
		totalLength += n
		frequency[nonWordChars.ReplaceAllString(strings.ToLower(w), "")]++
	}
	m.AvgWordLength = float64(totalLength) / float64(len(words))
	m.WordLengthVariance = textstats.IntVariance(wordLengths)
	m.RepetitionScore = 1 - float64(len(frequency))/float64(len(words))

	sentenceLengths := make([]int, len(sentences))
	for i, s := range sentences {
		n := len(strings.Fields(s))
		sentenceLengths[i] = n
		if n > 20 || strings.Count(s, ",") > 2 {
			m.ComplexSentences++
		}
	}
	m.SentenceLengthVariance = textstats.IntVariance(sentenceLengths)
	if m.SentenceCount > 0 {
		m.AvgWordsPerSentence = float64(m.WordCount) / float64(m.SentenceCount)
		m.ComplexityRatio = float64(m.ComplexSentences) / float64(m.SentenceCount)
	}

	for _, re := range transitionByWord {
		m.TransitionCount += len(re.FindAllStringIndex(text, -1))
	}
	m.ExclamationCount = strings.Count(text, "!")
	m.QuestionCount = strings.Count(text, "?")
	m.PunctuationVariety = m.ExclamationCount + m.QuestionCount
	m.ParagraphBreaks = len(paragraphBreaks.FindAllStringIndex(text, -1))

	return m, nil
}

// splitSentenceFragments cuts on runs of terminal punctuation and keeps the
// non-blank pieces. This is the scorer's coarse split, not the sentences package.
func splitSentenceFragments(text string) []string {
	parts := sentenceDelims.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func compileTransitions(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}
