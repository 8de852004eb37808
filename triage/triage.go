// Package triage implements C3: a deterministic pattern cascade run
// ahead of ML scoring, plus a bounded duplicate-content cache (§4.2).
package triage

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/crlsmrls/modsentry/domain"
)

// Tier is stateless per call except for the duplicate-hash cache.
type Tier struct {
	rules *RulesConfig
	dups  *dupCache
}

// New constructs a triage Tier with the given rule set and duplicate
// cache capacity.
func New(rules *RulesConfig, dupCacheCapacity int) *Tier {
	return &Tier{
		rules: rules,
		dups:  newDupCache(dupCacheCapacity),
	}
}

// Check runs the fixed-order cascade of §4.2 over a content's text.
// The first critical hit short-circuits; otherwise every subsequent
// check still runs so severity/violations/matched-patterns accumulate
// across the full ordered list.
func (t *Tier) Check(c domain.Content) domain.TriageResult {
	start := time.Now()
	result := domain.TriageResult{}

	normalized := normalizeText(c.Text)

	// 1. Critical patterns.
	for _, rule := range t.rules.CriticalPatterns {
		if rule.compiled != nil && rule.compiled.MatchString(normalized) {
			result.ShouldBlock = true
			result.Severity = domain.SeverityCritical
			result.Confidence = 0.99
			result.Violations = domain.UnionViolations(result.Violations, []domain.ViolationKind{domain.ViolationThreat})
			result.MatchedPatterns = append(result.MatchedPatterns, rule.ID)
			result.ProcessingTime = time.Since(start)
			return result
		}
	}

	// 2. Blocked-domain scan of extracted URLs.
	for _, url := range extractURLs(c.Text) {
		host := hostOf(url)
		if host == "" {
			continue
		}
		for _, blocked := range t.rules.BlockedDomains {
			if host == blocked || strings.HasSuffix(host, "."+blocked) {
				result.Severity = domain.MaxSeverity(result.Severity, domain.SeverityHigh)
				result.Confidence = maxF(result.Confidence, 0.95)
				result.Violations = domain.UnionViolations(result.Violations, []domain.ViolationKind{domain.ViolationSpam})
				result.MatchedPatterns = append(result.MatchedPatterns, "blocked-domain:"+host)
			}
		}
	}

	// 3. Spam patterns / exact spam phrases.
	for _, rule := range t.rules.SpamPatterns {
		if rule.compiled != nil && rule.compiled.MatchString(normalized) {
			result.Severity = domain.MaxSeverity(result.Severity, domain.SeverityMedium)
			result.Confidence = maxF(result.Confidence, 0.80)
			result.Violations = domain.UnionViolations(result.Violations, []domain.ViolationKind{domain.ViolationSpam})
			result.MatchedPatterns = append(result.MatchedPatterns, rule.ID)
		}
	}
	for _, phrase := range t.rules.SpamPhrases {
		if strings.Contains(normalized, strings.ToLower(phrase)) {
			result.Severity = domain.MaxSeverity(result.Severity, domain.SeverityMedium)
			result.Confidence = maxF(result.Confidence, 0.80)
			result.Violations = domain.UnionViolations(result.Violations, []domain.ViolationKind{domain.ViolationSpam})
			result.MatchedPatterns = append(result.MatchedPatterns, "spam-phrase:"+phrase)
		}
	}

	// 4. Profanity.
	for _, rule := range t.rules.ProfanityWords {
		if rule.compiled != nil && rule.compiled.MatchString(normalized) {
			result.Severity = domain.MaxSeverity(result.Severity, domain.SeverityLow)
			result.Confidence = maxF(result.Confidence, 0.90)
			result.Violations = domain.UnionViolations(result.Violations, []domain.ViolationKind{domain.ViolationProfanity})
			result.MatchedPatterns = append(result.MatchedPatterns, rule.ID)
		}
	}

	// 5. Duplicate content (MD5 hash in the bounded cache).
	if c.Text != "" {
		hash := contentHash(c.Text)
		if t.dups.SeenOrAdd(hash) {
			result.Severity = domain.MaxSeverity(result.Severity, domain.SeverityLow)
			result.Confidence = maxF(result.Confidence, 0.85)
			result.Violations = domain.UnionViolations(result.Violations, []domain.ViolationKind{domain.ViolationSpam})
			result.MatchedPatterns = append(result.MatchedPatterns, "duplicate-hash")
		}
	}

	result.ShouldBlock = result.Severity >= domain.SeverityHigh ||
		(result.Severity >= domain.SeverityMedium && result.Confidence >= 0.9)

	result.ProcessingTime = time.Since(start)
	return result
}

func contentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
