package heuristic

import "math"

// AIThreshold is the AI probability above which text is labelled AI-generated.
const AIThreshold = 55.0

// ScoreResult is the verdict derived from TextMetrics.
type ScoreResult struct {
	IsAI             bool    `json:"isAI"`
	AIProbability    float64 `json:"aiProbability"`
	HumanProbability float64 `json:"humanProbability"`
	Confidence       float64 `json:"confidence"`
	AIScore          int     `json:"aiScore"`
	HumanScore       int     `json:"humanScore"`
}

// Evaluation bundles metrics with the score computed from them.
type Evaluation struct {
	Metrics TextMetrics `json:"metrics"`
	Score   ScoreResult `json:"score"`
}

// rule returns the points it awards to the AI and human accumulators.
type rule func(m TextMetrics) (ai, human int)

var rules = []rule{
	// sentence length variance
	func(m TextMetrics) (int, int) {
		switch {
		case m.SentenceLengthVariance < 20:
			return 15, 0
		case m.SentenceLengthVariance > 40:
			return 0, 15
		}
		return 0, 0
	},
	// word repetition
	func(m TextMetrics) (int, int) {
		switch {
		case m.RepetitionScore > 0.4:
			return 20, 0
		case m.RepetitionScore < 0.25:
			return 0, 15
		}
		return 0, 0
	},
	// uniform mid-length sentences
	func(m TextMetrics) (int, int) {
		switch {
		case m.AvgWordsPerSentence > 15 && m.AvgWordsPerSentence < 25 && m.SentenceLengthVariance < 15:
			return 10, 0
		case m.SentenceLengthVariance > 30:
			return 0, 10
		}
		return 0, 0
	},
	// transitions
	func(m TextMetrics) (int, int) {
		switch {
		case m.TransitionCount == 0 && m.SentenceCount > 5:
			return 5, 0
		case float64(m.TransitionCount) > float64(m.SentenceCount)*0.1:
			return 0, 10
		}
		return 0, 0
	},
	// punctuation variety
	func(m TextMetrics) (int, int) {
		switch {
		case m.PunctuationVariety == 0 && m.SentenceCount > 3:
			return 5, 0
		case m.PunctuationVariety > 2:
			return 0, 8
		}
		return 0, 0
	},
	// paragraph breaks
	func(m TextMetrics) (int, int) {
		switch {
		case m.ParagraphBreaks == 0 && m.WordCount > 100:
			return 5, 0
		case m.ParagraphBreaks > 2:
			return 0, 10
		}
		return 0, 0
	},
	// complexity
	func(m TextMetrics) (int, int) {
		switch {
		case m.ComplexityRatio > 0.8:
			return 10, 0
		case m.ComplexityRatio < 0.5:
			return 0, 10
		}
		return 0, 0
	},
	// word length uniformity
	func(m TextMetrics) (int, int) {
		if m.WordLengthVariance < 2 {
			return 5, 0
		}
		return 0, 0
	},
}

// Score applies the fixed rule table to m.
func Score(m TextMetrics) ScoreResult {
	var res ScoreResult
	for _, r := range rules {
		ai, human := r(m)
		res.AIScore += ai
		res.HumanScore += human
	}

	res.AIProbability = 50
	if total := res.AIScore + res.HumanScore; total > 0 {
		res.AIProbability = float64(res.AIScore) / float64(total) * 100
	}
	res.HumanProbability = 100 - res.AIProbability
	res.IsAI = res.AIProbability > AIThreshold
	res.Confidence = math.Max(res.AIProbability, res.HumanProbability)
	return res
}

// Evaluate computes metrics for text and scores them.
func Evaluate(text string) (Evaluation, error) {
	m, err := ComputeMetrics(text)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{Metrics: m, Score: Score(m)}, nil
}
