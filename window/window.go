// Package window implements C8: the tumbling, sliding, and session
// window assigners Flow B uses to bucket event-time arrivals (§4.6).
package window

import (
	"time"

	"github.com/crlsmrls/modsentry/domain"
)

// Tumbling returns the single window [⌊t/w⌋·w, ⌊t/w⌋·w + w) containing t.
func Tumbling(t time.Time, w time.Duration) domain.WindowRange {
	start := floorTo(t, w)
	return domain.WindowRange{Start: start, End: start.Add(w)}
}

// Sliding returns every window [k·s, k·s + w) whose half-open range
// contains t, in start-ascending order (§4.6).
func Sliding(t time.Time, w, slide time.Duration) []domain.WindowRange {
	if slide <= 0 {
		return nil
	}

	// The latest slide-aligned start at or before t.
	latestStart := floorTo(t, slide)

	var ranges []domain.WindowRange
	// Walk backwards from latestStart while the window could still
	// contain t; windows are slide-spaced so there are at most
	// ceil(w/slide) of them.
	for start := latestStart; !start.After(t); start = start.Add(-slide) {
		r := domain.WindowRange{Start: start, End: start.Add(w)}
		if r.Contains(t) {
			ranges = append(ranges, r)
		}
		if t.Sub(start) > w {
			break
		}
	}

	// Reverse into start-ascending order.
	for i, j := 0, len(ranges)-1; i < j; i, j = i+1, j-1 {
		ranges[i], ranges[j] = ranges[j], ranges[i]
	}
	return ranges
}

func floorTo(t time.Time, d time.Duration) time.Time {
	if d <= 0 {
		return t
	}
	return time.Unix(0, (t.UnixNano()/int64(d))*int64(d)).In(t.Location())
}

// SessionTracker holds the per-key session state Session assignment
// needs across calls (§4.6): if the previous (start, end) exists with
// t ≤ end + gap, extend end to max(end, t); else start a new (t, t).
type SessionTracker struct {
	gap      time.Duration
	sessions map[string]domain.WindowRange
}

// NewSessionTracker constructs a tracker with the given inactivity gap.
func NewSessionTracker(gap time.Duration) *SessionTracker {
	return &SessionTracker{gap: gap, sessions: make(map[string]domain.WindowRange)}
}

// Assign extends or starts the session window for key at t, returning
// the current (possibly extended) window.
func (s *SessionTracker) Assign(key string, t time.Time) domain.WindowRange {
	prev, ok := s.sessions[key]
	if ok && !t.After(prev.End.Add(s.gap)) {
		if t.After(prev.End) {
			prev.End = t
		}
		s.sessions[key] = prev
		return prev
	}

	fresh := domain.WindowRange{Start: t, End: t}
	s.sessions[key] = fresh
	return fresh
}
