package domain

// ImageAnalysis carries label probabilities and a weapon flag for the
// optional image leg of the ML scoring tier (§3.1).
type ImageAnalysis struct {
	ExplicitNudity float64
	Violence       float64
	WeaponDetected bool
	Labels         map[string]float64
}

// MLScores is the eight-dimension bounded-float record the ML scoring
// tier produces for text, plus an optional image analysis (§3.1).
// All fields except Sentiment are clamped to [0,1]; Sentiment is
// clamped to [-1,1].
type MLScores struct {
	Toxicity     float64
	Spam         float64
	HateSpeech   float64
	Harassment   float64
	Violence     float64
	Adult        float64
	Sentiment    float64
	Confidence   float64
	Image        *ImageAnalysis
}

// Clamp forces every field into its documented bound, in place. Used
// defensively by reference scorers that simulate model variance with
// additive noise.
func (s *MLScores) Clamp() {
	s.Toxicity = clamp01(s.Toxicity)
	s.Spam = clamp01(s.Spam)
	s.HateSpeech = clamp01(s.HateSpeech)
	s.Harassment = clamp01(s.Harassment)
	s.Violence = clamp01(s.Violence)
	s.Adult = clamp01(s.Adult)
	s.Sentiment = clampRange(s.Sentiment, -1, 1)
	s.Confidence = clamp01(s.Confidence)
	if s.Image != nil {
		s.Image.ExplicitNudity = clamp01(s.Image.ExplicitNudity)
		s.Image.Violence = clamp01(s.Image.Violence)
	}
}

func clamp01(v float64) float64 { return clampRange(v, 0, 1) }

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NeedsHumanReview implements the borderline-band signal of §4.3: low
// overall confidence, or any trigger threshold sitting within 0.1 of
// its own score.
func (s MLScores) NeedsHumanReview() bool {
	if s.Confidence < 0.5 {
		return true
	}
	const band = 0.1
	if absf(s.Toxicity-0.70) < band {
		return true
	}
	if absf(s.HateSpeech-0.60) < band {
		return true
	}
	if absf(s.Harassment-0.65) < band {
		return true
	}
	return false
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
