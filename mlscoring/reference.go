package mlscoring

import (
	"hash/fnv"
	"strings"

	"github.com/crlsmrls/modsentry/domain"
)

// wordList is a fixed per-dimension feature word list. The reference
// scorer counts occurrences additively, the way the pack's rule-based
// toxicity classifier accumulates a weighted category score per
// pattern match (SPEC_FULL §4.8).
var wordList = map[string][]string{
	"toxicity":   {"idiot", "stupid", "trash", "worthless", "pathetic"},
	"spam":       {"buy", "free", "click", "offer", "discount", "subscribe"},
	"hate":       {"hate", "inferior", "subhuman"},
	"harassment": {"kill yourself", "nobody likes you", "shut up"},
	"violence":   {"kill", "attack", "hurt", "destroy"},
	"adult":      {"nude", "explicit", "xxx"},
}

const featureWeight = 0.2

// ReferenceScorer is the deterministic feature-based scorer named in
// spec §1 Non-goals: adequate for tests, bit-exact reproducible given
// the same text, as required by §8's round-trip property.
type ReferenceScorer struct{}

// NewReferenceScorer constructs the deterministic reference scorer.
func NewReferenceScorer() *ReferenceScorer { return &ReferenceScorer{} }

// ScoreText implements TextScorer.
func (s *ReferenceScorer) ScoreText(text string) (domain.MLScores, error) {
	lower := strings.ToLower(text)

	scores := domain.MLScores{
		Toxicity:   featureScore(lower, wordList["toxicity"]),
		Spam:       featureScore(lower, wordList["spam"]),
		HateSpeech: featureScore(lower, wordList["hate"]),
		Harassment: featureScore(lower, wordList["harassment"]),
		Violence:   featureScore(lower, wordList["violence"]),
		Adult:      featureScore(lower, wordList["adult"]),
		Sentiment:  sentimentOf(lower),
		Confidence: confidenceFor(len(text)),
	}

	noise := deterministicNoise(text)
	scores.Toxicity += noise
	scores.Spam += noise / 2
	scores.HateSpeech += noise / 3

	scores.Clamp()
	return scores, nil
}

// AnalyseImage implements ImageAnalyser with a deterministic stub: a
// URL hinting at its own content (useful for fixtures and tests)
// otherwise analyses as benign.
func (s *ReferenceScorer) AnalyseImage(imageURL string) (domain.ImageAnalysis, error) {
	lower := strings.ToLower(imageURL)
	analysis := domain.ImageAnalysis{Labels: map[string]float64{}}

	if strings.Contains(lower, "explicit") || strings.Contains(lower, "nude") {
		analysis.ExplicitNudity = 0.9
	}
	if strings.Contains(lower, "violence") || strings.Contains(lower, "gore") {
		analysis.Violence = 0.9
	}
	if strings.Contains(lower, "weapon") || strings.Contains(lower, "gun") {
		analysis.WeaponDetected = true
	}
	return analysis, nil
}

// featureScore additively counts word-list hits, clamped to [0,1].
func featureScore(text string, words []string) float64 {
	var score float64
	for _, w := range words {
		score += float64(strings.Count(text, w)) * featureWeight
	}
	if score > 1 {
		score = 1
	}
	return score
}

// sentimentOf is a coarse positive/negative word-count heuristic
// clamped to [-1,1].
func sentimentOf(text string) float64 {
	positive := []string{"great", "awesome", "love", "thanks", "good"}
	negative := []string{"hate", "terrible", "worst", "awful", "bad"}

	var score float64
	for _, w := range positive {
		score += float64(strings.Count(text, w)) * 0.25
	}
	for _, w := range negative {
		score -= float64(strings.Count(text, w)) * 0.25
	}
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

// confidenceFor implements §4.3: confidence = min(0.95, 0.5 + len/1000).
func confidenceFor(length int) float64 {
	c := 0.5 + float64(length)/1000
	if c > 0.95 {
		c = 0.95
	}
	return c
}

// deterministicNoise emulates model variance without breaking the
// bit-exact reproducibility §8 requires: the same text always hashes
// to the same small perturbation, rather than drawing from math/rand.
func deterministicNoise(text string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	v := h.Sum32() % 100
	return (float64(v)/100 - 0.5) * 0.04 // ±0.02
}
