package domain

import "time"

// ChatMessage is the Flow B input record (§6): pre-parsed, arriving
// with an event-time timestamp rather than processing-time.
type ChatMessage struct {
	ID        string
	UserID    string
	ChannelID string
	Text      string
	EventTime time.Time
}

// FlinkDecision is the terminal Flow B record (§3.1). The name mirrors
// the spec's own terminology for the real-time decision record; it is
// not tied to any particular stream-processing framework.
type FlinkDecision struct {
	MessageID      string
	UserID         string
	ChannelID      string
	Decision       Decision
	Severity       Severity
	Violations     []ViolationKind
	SpamScore      float64
	ToxicityScore  float64
	ProcessingTime time.Duration
	Count1m        int
	Count5m        int
	RateLimited    bool
	Repeat         bool
	Bursting       bool
	// Late reports whether this message's event time fell behind the
	// processor's watermark by more than the configured allowed
	// lateness (§4.5 step 1).
	Late bool
	// Window is the tumbling window (§4.6) this message was assigned
	// to; Session is the user's current session window, extended or
	// started by the same assignment.
	Window       WindowRange
	SessionStart time.Time
	SessionEnd   time.Time
	// ChannelMessageRate, RaidDetected and SpamWave are the channel-
	// level aggregates ChannelState.Evaluate produces alongside the
	// per-user decision (§3.1).
	ChannelMessageRate float64
	RaidDetected       bool
	SpamWave           bool
}

// WindowRange is a half-open [Start, End) time range returned by a
// window assigner (§4.6).
type WindowRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in the half-open range.
func (w WindowRange) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

const recentHashCapacity = 100
const windowRetention = 5 * time.Minute

// MessageEntry is a single (timestamp, text) pair retained in a user's
// window state, bounded by 5-minute retention (§3.1).
type MessageEntry struct {
	At   time.Time
	Text string
}

// WindowState is the per-user Flow B state owned exclusively by the
// stream processor (§3.1, §3.2).
type WindowState struct {
	UserID        string
	Messages      []MessageEntry
	RecentHashes  []string
	LastMessageAt time.Time
	Velocity      float64
	Violations    int
}

// PruneOlderThan removes message entries whose timestamp predates the
// cutoff, matching the 5-minute retention invariant (§3.1, §4.5 step 6).
func (w *WindowState) PruneOlderThan(cutoff time.Time) {
	kept := w.Messages[:0]
	for _, m := range w.Messages {
		if m.At.After(cutoff) {
			kept = append(kept, m)
		}
	}
	w.Messages = kept
}

// PushHash appends a content hash to the bounded FIFO of recent hashes,
// evicting the oldest entry once capacity is exceeded (§3.1, §4.5).
func (w *WindowState) PushHash(hash string) {
	w.RecentHashes = append(w.RecentHashes, hash)
	if len(w.RecentHashes) > recentHashCapacity {
		w.RecentHashes = w.RecentHashes[len(w.RecentHashes)-recentHashCapacity:]
	}
}

// HasHash reports whether hash is present in the recent-hash FIFO.
func (w *WindowState) HasHash(hash string) bool {
	for _, h := range w.RecentHashes {
		if h == hash {
			return true
		}
	}
	return false
}

// CountSince returns the number of retained messages with timestamps
// within d of now — the basis for the 1m window count (§4.5, §8).
func (w *WindowState) CountSince(now time.Time, d time.Duration) int {
	cutoff := now.Add(-d)
	n := 0
	for _, m := range w.Messages {
		if m.At.After(cutoff) {
			n++
		}
	}
	return n
}

// CountInRange returns the number of retained messages whose timestamp
// falls within r — the basis for the sliding-window 5m count (§4.6).
func (w *WindowState) CountInRange(r WindowRange) int {
	n := 0
	for _, m := range w.Messages {
		if r.Contains(m.At) {
			n++
		}
	}
	return n
}

// ChannelState tracks per-channel aggregate activity used for raid and
// spam-wave detection (§3.1). Flow B's core decision path (§4.5) keys
// state by user; ChannelState is maintained alongside it for channel-
// level observability and is read by the raid/spam-wave signal.
type ChannelState struct {
	ChannelID      string
	ActiveUsers    int
	MessageRate    float64
	BaselineRate   float64
	SpikeThreshold float64
	RaidFlag       bool
	SpamWaveFlag   bool

	// RecentUsers and LastMessageAt are the bookkeeping the stream
	// processor persists between messages to derive ActiveUsers and
	// MessageRate; they are not part of the raid/spam-wave signal
	// itself.
	RecentUsers   []string
	LastMessageAt time.Time
}

const recentUserCapacity = 50

// PushUser records userID in the bounded FIFO of recently-seen
// channel members, evicting the oldest entry once capacity is
// exceeded, and returns the resulting distinct-user count.
func (c *ChannelState) PushUser(userID string) int {
	for _, u := range c.RecentUsers {
		if u == userID {
			return c.distinctUsers()
		}
	}
	c.RecentUsers = append(c.RecentUsers, userID)
	if len(c.RecentUsers) > recentUserCapacity {
		c.RecentUsers = c.RecentUsers[len(c.RecentUsers)-recentUserCapacity:]
	}
	return c.distinctUsers()
}

func (c *ChannelState) distinctUsers() int {
	seen := make(map[string]struct{}, len(c.RecentUsers))
	for _, u := range c.RecentUsers {
		seen[u] = struct{}{}
	}
	return len(seen)
}

// Evaluate recomputes the raid/spam-wave flags from the current rate
// against the baseline and spike threshold.
func (c *ChannelState) Evaluate() {
	if c.BaselineRate <= 0 {
		c.RaidFlag = false
		c.SpamWaveFlag = false
		return
	}
	ratio := c.MessageRate / c.BaselineRate
	c.SpamWaveFlag = ratio >= c.SpikeThreshold
	c.RaidFlag = c.ActiveUsers > 0 && ratio >= c.SpikeThreshold*1.5
}
