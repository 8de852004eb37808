package mlscoring

import (
	"time"

	"github.com/crlsmrls/modsentry/domain"
	"github.com/crlsmrls/modsentry/internal/modsentryerr"
	"github.com/sony/gobreaker"
)

// GuardedScorer wraps a Scorer with a circuit breaker (SPEC_FULL §4.8,
// C16): the ML scorer call is the one suspension point identified in
// spec §5. When the breaker is open or the call errors, callers
// receive ScorerUnavailable instead of blocking the tier budget.
type GuardedScorer struct {
	inner   Scorer
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedScorer wraps inner with a breaker named for logging/metrics.
func NewGuardedScorer(inner Scorer) *GuardedScorer {
	settings := gobreaker.Settings{
		Name:        "ml-scorer",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &GuardedScorer{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// ScoreText runs the inner scorer's ScoreText through the breaker.
func (g *GuardedScorer) ScoreText(text string) (domain.MLScores, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.ScoreText(text)
	})
	if err != nil {
		return domain.MLScores{}, modsentryerr.New(modsentryerr.ScorerUnavailable, "mlscoring.ScoreText", err)
	}
	return out.(domain.MLScores), nil
}

// AnalyseImage runs the inner scorer's AnalyseImage through the breaker.
func (g *GuardedScorer) AnalyseImage(imageURL string) (domain.ImageAnalysis, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.AnalyseImage(imageURL)
	})
	if err != nil {
		return domain.ImageAnalysis{}, modsentryerr.New(modsentryerr.ScorerUnavailable, "mlscoring.AnalyseImage", err)
	}
	return out.(domain.ImageAnalysis), nil
}
