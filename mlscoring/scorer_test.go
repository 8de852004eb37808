package mlscoring

import (
	"errors"
	"testing"

	"github.com/crlsmrls/modsentry/domain"
	"github.com/crlsmrls/modsentry/internal/modsentryerr"
)

func TestReferenceScorer_ClampedBounds(t *testing.T) {
	s := NewReferenceScorer()
	scores, err := s.ScoreText("kill kill kill kill kill kill kill kill kill kill")
	if err != nil {
		t.Fatalf("ScoreText() error = %v", err)
	}
	if scores.Violence < 0 || scores.Violence > 1 {
		t.Errorf("Violence = %f, out of [0,1]", scores.Violence)
	}
	if scores.Sentiment < -1 || scores.Sentiment > 1 {
		t.Errorf("Sentiment = %f, out of [-1,1]", scores.Sentiment)
	}
}

// §8 round-trip property: re-scoring identical text is bit-exact.
func TestReferenceScorer_DeterministicReplay(t *testing.T) {
	s := NewReferenceScorer()
	a, _ := s.ScoreText("you should really reconsider, your behaviour is borderline")
	b, _ := s.ScoreText("you should really reconsider, your behaviour is borderline")

	if a != b {
		t.Errorf("ScoreText() not deterministic: %+v != %+v", a, b)
	}
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		length int
		want   float64
	}{
		{0, 0.5},
		{450, 0.95},
		{1000, 0.95},
	}
	for _, tt := range tests {
		if got := confidenceFor(tt.length); got != tt.want {
			t.Errorf("confidenceFor(%d) = %f, want %f", tt.length, got, tt.want)
		}
	}
}

func TestMapViolations_MaxSeverityAcrossRules(t *testing.T) {
	scores := domain.MLScores{HateSpeech: 0.9, Spam: 0.9}
	result := MapViolations(scores)

	if result.Severity != domain.SeverityHigh {
		t.Errorf("Severity = %v, want high (from hate-speech rule)", result.Severity)
	}
	if len(result.Violations) != 2 {
		t.Errorf("Violations = %v, want 2 kinds", result.Violations)
	}
}

func TestMapViolations_ImageWeaponDetected(t *testing.T) {
	scores := domain.MLScores{Image: &domain.ImageAnalysis{WeaponDetected: true}}
	result := MapViolations(scores)

	if result.Severity != domain.SeverityMedium {
		t.Errorf("Severity = %v, want medium", result.Severity)
	}
}

func TestNeedsHumanReview_BorderlineBand(t *testing.T) {
	tests := []struct {
		name   string
		scores domain.MLScores
		want   bool
	}{
		{"low confidence", domain.MLScores{Confidence: 0.4}, true},
		{"borderline toxicity", domain.MLScores{Confidence: 0.9, Toxicity: 0.65}, true},
		{"clearly safe", domain.MLScores{Confidence: 0.9, Toxicity: 0.1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scores.NeedsHumanReview(); got != tt.want {
				t.Errorf("NeedsHumanReview() = %v, want %v", got, tt.want)
			}
		})
	}
}

type failingScorer struct{}

func (failingScorer) ScoreText(string) (domain.MLScores, error) {
	return domain.MLScores{}, errors.New("scorer exploded")
}
func (failingScorer) AnalyseImage(string) (domain.ImageAnalysis, error) {
	return domain.ImageAnalysis{}, errors.New("scorer exploded")
}

func TestGuardedScorer_WrapsFailureAsScorerUnavailable(t *testing.T) {
	g := NewGuardedScorer(failingScorer{})
	_, err := g.ScoreText("anything")

	if !modsentryerr.Is(err, modsentryerr.ScorerUnavailable) {
		t.Errorf("expected ScorerUnavailable, got %v", err)
	}
}

func TestGuardedScorer_PassesThroughSuccess(t *testing.T) {
	g := NewGuardedScorer(NewReferenceScorer())
	scores, err := g.ScoreText("Great game everyone!")
	if err != nil {
		t.Fatalf("ScoreText() error = %v", err)
	}
	if scores.Confidence <= 0 {
		t.Error("expected a positive confidence from the reference scorer")
	}
}
