package mlscoring

import "github.com/crlsmrls/modsentry/domain"

// MappingResult is the violation/severity product of applying the
// threshold table of §4.3 to a scored content.
type MappingResult struct {
	Violations       []domain.ViolationKind
	Severity         domain.Severity
	NeedsHumanReview bool
}

// MapViolations implements the §4.3 threshold ⇒ violation/severity
// table, taking the maximum severity across every triggered rule.
func MapViolations(scores domain.MLScores) MappingResult {
	var result MappingResult

	type rule struct {
		triggered bool
		kind      domain.ViolationKind
		severity  domain.Severity
	}

	rules := []rule{
		{scores.Toxicity > 0.70, domain.ViolationHarassment, domain.SeverityMedium},
		{scores.Spam > 0.80, domain.ViolationSpam, domain.SeverityLow},
		{scores.HateSpeech > 0.60, domain.ViolationHateSpeech, domain.SeverityHigh},
		{scores.Harassment > 0.65, domain.ViolationHarassment, domain.SeverityMedium},
		{scores.Violence > 0.70, domain.ViolationViolence, domain.SeverityHigh},
		{scores.Adult > 0.75, domain.ViolationAdult, domain.SeverityMedium},
	}
	if scores.Image != nil {
		rules = append(rules,
			rule{scores.Image.ExplicitNudity > 0.70, domain.ViolationAdult, domain.SeverityHigh},
			rule{scores.Image.Violence > 0.70, domain.ViolationViolence, domain.SeverityHigh},
			rule{scores.Image.WeaponDetected, domain.ViolationViolence, domain.SeverityMedium},
		)
	}

	for _, r := range rules {
		if !r.triggered {
			continue
		}
		result.Violations = domain.UnionViolations(result.Violations, []domain.ViolationKind{r.kind})
		result.Severity = domain.MaxSeverity(result.Severity, r.severity)
	}

	result.NeedsHumanReview = scores.NeedsHumanReview()
	return result
}
