// Package stream implements Flow B (C7): the real-time chat-message
// pipeline of spec.md §4.5, serialised per user key and budgeted to a
// 10 ms end-to-end ceiling (§5).
package stream

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/crlsmrls/modsentry/config"
	"github.com/crlsmrls/modsentry/domain"
	"github.com/crlsmrls/modsentry/internal/modsentryerr"
	"github.com/crlsmrls/modsentry/metrics"
	"github.com/crlsmrls/modsentry/statebackend"
	"github.com/crlsmrls/modsentry/triage"
	"github.com/crlsmrls/modsentry/window"
)

const (
	tumblingWindow = time.Minute
	slidingWindow  = 5 * time.Minute
	slidingSlide   = time.Minute
	sessionGap     = 2 * time.Minute
	rateLimitCount = 10
	burstDelta     = 500 * time.Millisecond
	burstVelocity  = 2.0
	velocityAlpha  = 0.3
	dupHashMinimum = 3

	// channelBaselineRate and channelSpikeThreshold mirror the
	// original service's normal_message_rate=10/spike_threshold=50
	// pair as a ratio: a channel running at 5x its 10 msg/s baseline
	// trips the spam-wave signal, 7.5x trips a raid.
	channelBaselineRate   = 10.0
	channelSpikeThreshold = 5.0
)

const stateName = "window"
const channelStateName = "channel"

// Processor runs the Flow B decision path over a single Backend,
// keyed by user id per spec §5's single-writer-per-key model. Callers
// serialise calls for the same UserID; different keys may run
// concurrently against the same Processor since the Backend itself
// is the only shared mutable state and every Backend implementation
// documents its own concurrency contract.
type Processor struct {
	backend         statebackend.Backend
	sessions        *window.SessionTracker
	blocklist       []string
	watermark       time.Time
	allowedLateness time.Duration
	sweepEveryN     int
	processed       int
	lateMessages    int
}

// New constructs a Flow B processor against backend, loading its
// blocklist phrases from rules (the same SpamPhrases list triage
// loads from YAML, per SPEC_FULL §4.8) and its sweep cadence and
// lateness tolerance from cfg.
func New(backend statebackend.Backend, rules *triage.RulesConfig, cfg *config.Config) *Processor {
	blocklist := make([]string, len(rules.SpamPhrases))
	for i, p := range rules.SpamPhrases {
		blocklist[i] = strings.ToLower(p)
	}
	return &Processor{
		backend:         backend,
		sessions:        window.NewSessionTracker(sessionGap),
		blocklist:       blocklist,
		allowedLateness: cfg.AllowedLateness,
		sweepEveryN:     cfg.SweepEveryN,
	}
}

// LateMessages returns the running count of messages processed whose
// event time fell behind the watermark by more than AllowedLateness
// (§4.5 step 1).
func (p *Processor) LateMessages() int { return p.lateMessages }

// persistedState is the JSON-encoded shape written to the Backend for
// the "window" state name, keyed by user id.
type persistedState struct {
	Messages      []domain.MessageEntry `json:"messages"`
	RecentHashes  []string              `json:"recent_hashes"`
	LastMessageAt time.Time             `json:"last_message_at"`
	Velocity      float64               `json:"velocity"`
	Violations    int                   `json:"violations"`
}

func (p *Processor) loadState(ctx context.Context, userID string) (domain.WindowState, error) {
	raw, ok, err := p.backend.Get(ctx, userID, stateName)
	if err != nil {
		return domain.WindowState{}, err
	}
	state := domain.WindowState{UserID: userID}
	if !ok {
		return state, nil
	}
	var persisted persistedState
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return domain.WindowState{}, modsentryerr.New(modsentryerr.Internal, "stream.loadState", err)
	}
	state.Messages = persisted.Messages
	state.RecentHashes = persisted.RecentHashes
	state.LastMessageAt = persisted.LastMessageAt
	state.Velocity = persisted.Velocity
	state.Violations = persisted.Violations
	return state, nil
}

func (p *Processor) saveState(ctx context.Context, state domain.WindowState) error {
	persisted := persistedState{
		Messages:      state.Messages,
		RecentHashes:  state.RecentHashes,
		LastMessageAt: state.LastMessageAt,
		Velocity:      state.Velocity,
		Violations:    state.Violations,
	}
	raw, err := json.Marshal(persisted)
	if err != nil {
		return modsentryerr.New(modsentryerr.Internal, "stream.saveState", err)
	}
	return p.backend.Put(ctx, state.UserID, stateName, raw)
}

// persistedChannelState is the JSON-encoded shape written to the
// Backend for the "channel" state name, keyed by channel id.
type persistedChannelState struct {
	RecentUsers   []string  `json:"recent_users"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageRate   float64   `json:"message_rate"`
}

func (p *Processor) loadChannelState(ctx context.Context, channelID string) (domain.ChannelState, error) {
	raw, ok, err := p.backend.Get(ctx, channelID, channelStateName)
	if err != nil {
		return domain.ChannelState{}, err
	}
	state := domain.ChannelState{
		ChannelID:      channelID,
		BaselineRate:   channelBaselineRate,
		SpikeThreshold: channelSpikeThreshold,
	}
	if !ok {
		return state, nil
	}
	var persisted persistedChannelState
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return domain.ChannelState{}, modsentryerr.New(modsentryerr.Internal, "stream.loadChannelState", err)
	}
	state.RecentUsers = persisted.RecentUsers
	state.LastMessageAt = persisted.LastMessageAt
	state.MessageRate = persisted.MessageRate
	return state, nil
}

func (p *Processor) saveChannelState(ctx context.Context, state domain.ChannelState) error {
	persisted := persistedChannelState{
		RecentUsers:   state.RecentUsers,
		LastMessageAt: state.LastMessageAt,
		MessageRate:   state.MessageRate,
	}
	raw, err := json.Marshal(persisted)
	if err != nil {
		return modsentryerr.New(modsentryerr.Internal, "stream.saveChannelState", err)
	}
	return p.backend.Put(ctx, state.ChannelID, channelStateName, raw)
}

// Process runs one ChatMessage through watermark tracking, window
// assignment, keyed state read, feature computation, and the decision
// ladder of §4.5, writing the updated state back before returning.
func (p *Processor) Process(ctx context.Context, msg domain.ChatMessage) (result domain.FlinkDecision, err error) {
	start := time.Now()

	defer func() {
		if err != nil {
			return
		}
		metrics.ContentProcessedTotal.WithLabelValues("chat", string(result.Decision)).Inc()
		metrics.TierProcessingSeconds.WithLabelValues("stream").Observe(result.ProcessingTime.Seconds())
		if result.RateLimited {
			metrics.RateLimitedTotal.WithLabelValues(result.ChannelID).Inc()
		}
	}()

	// Watermark/lateness (§4.5 step 1): a message is late if its event
	// time trails the watermark already advanced by prior arrivals by
	// more than the configured tolerance. The comparison runs against
	// the watermark as it stood before this message, so an in-order
	// arrival is never late against itself.
	late := p.watermark.After(msg.EventTime.Add(p.allowedLateness))
	if late {
		p.lateMessages++
	}
	if msg.EventTime.After(p.watermark) {
		p.watermark = msg.EventTime
	}

	state, loadErr := p.loadState(ctx, msg.UserID)
	if loadErr != nil {
		err = modsentryerr.New(modsentryerr.StateUnavailable, "stream.Process", loadErr)
		return domain.FlinkDecision{}, err
	}
	channelState, loadErr := p.loadChannelState(ctx, msg.ChannelID)
	if loadErr != nil {
		err = modsentryerr.New(modsentryerr.StateUnavailable, "stream.Process", loadErr)
		return domain.FlinkDecision{}, err
	}

	// Window assignment (C8, §4.6): the tumbling window is attached to
	// the terminal record, the sliding windows drive the 5m counter
	// below, and the session window is attached alongside it.
	tumbling := window.Tumbling(msg.EventTime, tumblingWindow)
	sliding := window.Sliding(msg.EventTime, slidingWindow, slidingSlide)
	session := p.sessions.Assign(msg.UserID, msg.EventTime)

	var deltaT time.Duration
	if !state.LastMessageAt.IsZero() {
		deltaT = msg.EventTime.Sub(state.LastMessageAt)
	}
	velocity := updateVelocity(state.Velocity, deltaT)

	var channelDeltaT time.Duration
	if !channelState.LastMessageAt.IsZero() {
		channelDeltaT = msg.EventTime.Sub(channelState.LastMessageAt)
	}
	channelState.MessageRate = updateVelocity(channelState.MessageRate, channelDeltaT)
	channelState.ActiveUsers = channelState.PushUser(msg.UserID)
	channelState.Evaluate()

	hash := contentHash(msg.Text)
	isDuplicate := state.HasHash(hash)
	count1m := state.CountSince(msg.EventTime, time.Minute) + 1
	count5m := 1
	for _, r := range sliding {
		if c := state.CountInRange(r) + 1; c > count5m {
			count5m = c
		}
	}
	rateLimited := count1m > rateLimitCount
	bursting := deltaT > 0 && deltaT < burstDelta && velocity > burstVelocity

	spam := spamScore(msg.Text)
	toxicity := toxicityScore(msg.Text)
	blocked := p.matchesBlocklist(msg.Text)

	decision, severity, violations := decide(spam, toxicity, isDuplicate, len(state.RecentHashes), blocked, rateLimited, bursting, channelState.RaidFlag)
	if len(violations) > 0 {
		state.Violations++
	}

	result = domain.FlinkDecision{
		MessageID:          msg.ID,
		UserID:             msg.UserID,
		ChannelID:          msg.ChannelID,
		Decision:           decision,
		Severity:           severity,
		Violations:         violations,
		SpamScore:          spam,
		ToxicityScore:      toxicity,
		Count1m:            count1m,
		Count5m:            count5m,
		RateLimited:        rateLimited,
		Repeat:             isDuplicate,
		Bursting:           bursting,
		Late:               late,
		Window:             tumbling,
		SessionStart:       session.Start,
		SessionEnd:         session.End,
		ChannelMessageRate: channelState.MessageRate,
		RaidDetected:       channelState.RaidFlag,
		SpamWave:           channelState.SpamWaveFlag,
		ProcessingTime:     time.Since(start),
	}

	state.Messages = append(state.Messages, domain.MessageEntry{At: msg.EventTime, Text: msg.Text})
	state.PushHash(hash)
	state.LastMessageAt = msg.EventTime
	state.Velocity = velocity
	state.PruneOlderThan(msg.EventTime.Add(-windowRetention))

	channelState.LastMessageAt = msg.EventTime

	if saveErr := p.saveState(ctx, state); saveErr != nil {
		err = modsentryerr.New(modsentryerr.StateUnavailable, "stream.Process", saveErr)
		return result, err
	}
	if saveErr := p.saveChannelState(ctx, channelState); saveErr != nil {
		err = modsentryerr.New(modsentryerr.StateUnavailable, "stream.Process", saveErr)
		return result, err
	}

	p.processed++
	if p.processed%p.sweepEveryN == 0 {
		if _, sweepErr := p.Sweep(ctx, msg.EventTime); sweepErr != nil {
			err = sweepErr
			return result, err
		}
	}

	return result, nil
}

const windowRetention = 5 * time.Minute

// updateVelocity applies the EMA smoothing of §4.5 step 4: v <- 0.3*(1/dt) + 0.7*v.
// The first message for a key has no prior delta and leaves velocity at 0.
func updateVelocity(prev float64, deltaT time.Duration) float64 {
	if deltaT <= 0 {
		return prev
	}
	instantaneous := 1.0 / deltaT.Seconds()
	return velocityAlpha*instantaneous + (1-velocityAlpha)*prev
}

func (p *Processor) matchesBlocklist(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range p.blocklist {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// decide implements the ordered ladder of §4.5 step 5. Rules are
// evaluated in spec order; severity accumulates via MaxSeverity rather
// than overwriting, and violations accumulate via UnionViolations, so a
// message that trips more than one rule keeps every kind it earned.
// raid folds in the channel-level raid signal from ChannelState.Evaluate
// (§3.1): a raid in progress escalates every message riding it, not
// just the ones that independently trip a per-message rule.
func decide(spam, toxicity float64, isDuplicate bool, recentHashCount int, blocked, rateLimited, bursting, raid bool) (domain.Decision, domain.Severity, []domain.ViolationKind) {
	decision := domain.DecisionApproved
	severity := domain.SeverityNone
	var violations []domain.ViolationKind

	if spam > 0.7 {
		decision = domain.DecisionRejected
		severity = domain.MaxSeverity(severity, domain.SeverityMedium)
		violations = domain.UnionViolations(violations, []domain.ViolationKind{domain.ViolationSpam})
	}
	if toxicity > 0.8 {
		decision = domain.DecisionRejected
		severity = domain.MaxSeverity(severity, domain.SeverityHigh)
		violations = domain.UnionViolations(violations, []domain.ViolationKind{domain.ViolationHarassment})
	}
	if isDuplicate && recentHashCount > dupHashMinimum {
		decision = domain.DecisionRejected
		severity = domain.MaxSeverity(severity, domain.SeverityLow)
		violations = domain.UnionViolations(violations, []domain.ViolationKind{domain.ViolationSpam})
	}
	if blocked {
		decision = domain.DecisionRejected
		severity = domain.MaxSeverity(severity, domain.SeverityMedium)
		violations = domain.UnionViolations(violations, []domain.ViolationKind{domain.ViolationSpam})
	}
	if raid {
		severity = domain.MaxSeverity(severity, domain.SeverityHigh)
		violations = domain.UnionViolations(violations, []domain.ViolationKind{domain.ViolationSpam})
	}
	if rateLimited {
		decision = domain.DecisionRejected
	}
	if bursting {
		severity = domain.MaxSeverity(severity, domain.SeverityLow)
	}

	return decision, severity, violations
}

// Sweep evicts window entries older than 5 minutes across every key
// touched by this processor (§4.5 step 6). now is the event-time basis;
// callers at the edge of the stream would instead use wall-clock time,
// but the processor's own watermark is the faithful notion of "now"
// for a replayed or simulated feed.
func (p *Processor) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-windowRetention)
	return p.backend.Sweep(ctx, 0, func(key, name string, value []byte) bool {
		switch name {
		case stateName:
			var persisted persistedState
			if err := json.Unmarshal(value, &persisted); err != nil {
				return false
			}
			return persisted.LastMessageAt.Before(cutoff)
		case channelStateName:
			var persisted persistedChannelState
			if err := json.Unmarshal(value, &persisted); err != nil {
				return false
			}
			return persisted.LastMessageAt.Before(cutoff)
		default:
			return false
		}
	})
}
