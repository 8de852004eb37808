// Package reputation implements the C2 reputation engine: per-user
// score, time-decayed violation history, risk classification,
// automatic sanctions, and rate-limit derivation (spec §4.1).
package reputation

import (
	"math"
	"sync"
	"time"

	"github.com/crlsmrls/modsentry/domain"
)

// Clock abstracts time.Now so tests can control the decay formula
// deterministically (§8 reputation decay scenario).
type Clock func() time.Time

// Engine owns every user's Reputation record, guarded by a per-user
// lock (§5 shared-resource policy): the orchestrator reads a risk
// profile once per content under that lock, releases, then
// re-acquires only to record the outcome.
type Engine struct {
	decayDays     float64
	accountAgeCap float64
	now           Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	users map[string]*domain.Reputation
}

// New constructs a reputation Engine. decayDays and accountAgeCapYears
// correspond to config.Config's ViolationDecayDays/AccountAgeCapYears.
func New(decayDays, accountAgeCapYears float64, now Clock) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		decayDays:     decayDays,
		accountAgeCap: accountAgeCapYears,
		now:           now,
		locks:         make(map[string]*sync.Mutex),
		users:         make(map[string]*domain.Reputation),
	}
}

func (e *Engine) lockFor(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// getOrCreate returns the user's reputation record, creating one with
// the default starting score of 50 if this is the first sighting.
func (e *Engine) getOrCreate(userID string) *domain.Reputation {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.users[userID]
	if !ok {
		r = domain.NewReputation(userID, e.now())
		e.users[userID] = r
	}
	return r
}

// GetRiskProfile returns the derived risk profile for a user: pure
// over current user state (§4.1).
func (e *Engine) GetRiskProfile(userID string) domain.RiskProfile {
	lock := e.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	r := e.getOrCreate(userID)
	return e.riskProfileLocked(r)
}

func (e *Engine) riskProfileLocked(r *domain.Reputation) domain.RiskProfile {
	now := e.now()
	thirtyDayCount := r.ViolationCountWithin(now, 30*24*time.Hour)
	level := classify(r.OverallScore, thirtyDayCount)
	perMin, perHour := rateLimitFor(level)

	return domain.RiskProfile{
		UserID:             r.UserID,
		Level:              level,
		RiskScore:          1 - r.OverallScore/100,
		FastTrackApproved:  level == domain.RiskTrusted,
		RateLimitPerMinute: perMin,
		RateLimitPerHour:   perHour,
	}
}

// classify implements the risk-classification ladder of §4.1, applied
// to overall score and 30-day violation count together, with ties
// broken by the earlier rule in the list.
func classify(score float64, thirtyDayCount int) domain.RiskLevel {
	switch {
	case score >= 80 && thirtyDayCount == 0:
		return domain.RiskTrusted
	case score >= 50 && thirtyDayCount <= 1:
		return domain.RiskNormal
	case score >= 30 || thirtyDayCount <= 3:
		return domain.RiskWatch
	case score >= 10:
		return domain.RiskRestricted
	default:
		return domain.RiskBanned
	}
}

// rateLimitFor returns the per-minute/per-hour rate limit table entry
// for a risk level (§4.1).
func rateLimitFor(level domain.RiskLevel) (perMinute, perHour int) {
	switch level {
	case domain.RiskTrusted:
		return 20, 200
	case domain.RiskNormal:
		return 10, 100
	case domain.RiskWatch:
		return 5, 50
	case domain.RiskRestricted:
		return 2, 20
	default:
		return 0, 0
	}
}

// SanctionResult reports the automatic sanction (if any) RecordViolation
// applied, so the orchestrator can log/emit it without re-deriving it.
type SanctionResult struct {
	Banned            bool
	Muted             bool
	RateLimitMultiplier float64
}

// RecordViolation appends a violation record, recomputes reputation,
// and applies automatic sanctions per §4.1.
func (e *Engine) RecordViolation(userID string, kind domain.ViolationKind, severity domain.Severity, contentID, action string) (domain.RiskProfile, SanctionResult) {
	lock := e.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	r := e.getOrCreate(userID)
	now := e.now()

	r.History = append(r.History, domain.ViolationRecord{
		Kind:       kind,
		Severity:   severity,
		ContentID:  contentID,
		OccurredAt: now,
		Action:     action,
	})
	r.LastViolationAt = now
	r.Counts.Rejected++

	r.OverallScore = e.recompute(r, now)

	sanction := SanctionResult{RateLimitMultiplier: 1.0}
	if kind.IsCritical() {
		sanction.Banned = true
		r.OverallScore = 0
	} else {
		thirtyDayCount := r.ViolationCountWithin(now, 30*24*time.Hour)
		switch {
		case thirtyDayCount >= 5:
			sanction.Banned = true
			r.OverallScore = math.Min(r.OverallScore, 9)
		case thirtyDayCount >= 3:
			sanction.Muted = true
			r.OverallScore = math.Min(r.OverallScore, 29)
		case thirtyDayCount >= 2:
			sanction.RateLimitMultiplier = 2.0
		}
	}

	profile := e.riskProfileLocked(r)
	switch {
	case sanction.Banned:
		profile.Level = domain.RiskBanned
	case sanction.Muted && profile.Level != domain.RiskBanned:
		profile.Level = domain.RiskRestricted
	}
	profile.FastTrackApproved = profile.Level == domain.RiskTrusted
	profile.RateLimitPerMinute, profile.RateLimitPerHour = rateLimitFor(profile.Level)
	return profile, sanction
}

// RecordApproval increments post/approved counters and nudges the
// overall score up by a small constant, clamped to 100 (§4.1).
const approvalNudge = 0.1

func (e *Engine) RecordApproval(userID string) domain.RiskProfile {
	lock := e.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	r := e.getOrCreate(userID)
	r.Counts.Posts++
	r.Counts.Approved++
	r.OverallScore = math.Min(100, r.OverallScore+approvalNudge)

	return e.riskProfileLocked(r)
}

// recompute is the §4.1 scoring formula: a weighted sum of
// approval-rate, account-age, violation-impact, and community-standing
// factors, pure over (history, account-age, approval-rate) per §3.3.
func (e *Engine) recompute(r *domain.Reputation, now time.Time) float64 {
	const (
		weightApproval  = 0.3
		weightAccountAge = 0.2
		weightViolation  = 0.3
		weightCommunity  = 0.2
	)

	approvalFactor := approvalRateFactor(r)
	ageFactor := e.accountAgeFactor(r.AccountCreated, now)
	violationFactor := 100 - violationImpact(r.History, now, e.decayDays)
	communityFactor := communityStandingFactor(r)

	score := weightApproval*approvalFactor +
		weightAccountAge*ageFactor +
		weightViolation*violationFactor +
		weightCommunity*communityFactor

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func approvalRateFactor(r *domain.Reputation) float64 {
	if r.Counts.Posts == 0 {
		return 50
	}
	return 100 * float64(r.Counts.Approved) / float64(r.Counts.Posts)
}

// accountAgeFactor linearly scales to 100 over the configured cap
// (default one year), days/3.65 capped (§4.1).
func (e *Engine) accountAgeFactor(created, now time.Time) float64 {
	if created.IsZero() {
		return 50
	}
	days := now.Sub(created).Hours() / 24
	capDays := e.accountAgeCap * 365
	factor := days / (capDays / 100)
	if factor > 100 {
		factor = 100
	}
	if factor < 0 {
		factor = 0
	}
	return factor
}

// violationImpact is min(100, Σ severity_i·10·exp(−Δdays_i/decayDays))
// summed over history (§4.1).
func violationImpact(history []domain.ViolationRecord, now time.Time, decayDays float64) float64 {
	var sum float64
	for _, v := range history {
		deltaDays := now.Sub(v.OccurredAt).Hours() / 24
		sum += float64(v.Severity) * 10 * math.Exp(-deltaDays/decayDays)
	}
	if sum > 100 {
		sum = 100
	}
	return sum
}

// communityStandingFactor is a simple function of rejection rate,
// filling the fourth scoring weight the spec names without further
// specifying; a user with no history stands at a neutral midpoint.
func communityStandingFactor(r *domain.Reputation) float64 {
	total := r.Counts.Approved + r.Counts.Rejected
	if total == 0 {
		return 50
	}
	return 100 * float64(r.Counts.Approved) / float64(total)
}
