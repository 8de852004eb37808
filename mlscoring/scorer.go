// Package mlscoring implements C4: the pluggable text/image scoring
// tier and its threshold-to-violation mapping (§4.3).
package mlscoring

import "github.com/crlsmrls/modsentry/domain"

// TextScorer is the capability set injected instead of a class
// hierarchy (spec §9 design notes): implementations vary, the engine
// only depends on this narrow interface.
type TextScorer interface {
	ScoreText(text string) (domain.MLScores, error)
}

// ImageAnalyser is the second capability: analysing an image
// reference, independent of text scoring.
type ImageAnalyser interface {
	AnalyseImage(imageURL string) (domain.ImageAnalysis, error)
}

// Scorer composes both capabilities; the reference implementation in
// this package (see reference.go) satisfies both.
type Scorer interface {
	TextScorer
	ImageAnalyser
}
