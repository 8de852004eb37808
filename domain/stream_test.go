package domain

import (
	"testing"
	"time"
)

func TestWindowState_PushHashEvictsOldest(t *testing.T) {
	w := &WindowState{UserID: "u1"}
	for i := 0; i < recentHashCapacity+10; i++ {
		w.PushHash(string(rune('a' + i%26)))
	}
	if len(w.RecentHashes) != recentHashCapacity {
		t.Fatalf("len(RecentHashes) = %d, want %d", len(w.RecentHashes), recentHashCapacity)
	}
}

func TestWindowState_PruneOlderThan(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := &WindowState{
		Messages: []MessageEntry{
			{At: now.Add(-6 * time.Minute), Text: "old"},
			{At: now.Add(-1 * time.Minute), Text: "recent"},
		},
	}
	w.PruneOlderThan(now.Add(-windowRetention))

	if len(w.Messages) != 1 || w.Messages[0].Text != "recent" {
		t.Fatalf("PruneOlderThan left %v, want only the recent entry", w.Messages)
	}
}

func TestWindowState_CountSinceMonotone(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := &WindowState{}
	for i := 1; i <= 5; i++ {
		w.Messages = append(w.Messages, MessageEntry{At: now.Add(time.Duration(i) * time.Second), Text: "m"})
		got := w.CountSince(now.Add(time.Duration(i)*time.Second), time.Minute)
		if got != i {
			t.Errorf("after %d messages, CountSince = %d, want %d", i, got, i)
		}
	}
}

func TestWindowState_CountInRange(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := &WindowState{Messages: []MessageEntry{
		{At: now.Add(-10 * time.Minute), Text: "old"},
		{At: now.Add(-2 * time.Minute), Text: "recent"},
		{At: now, Text: "now"},
	}}

	r := WindowRange{Start: now.Add(-5 * time.Minute), End: now.Add(time.Second)}
	if got := w.CountInRange(r); got != 2 {
		t.Errorf("CountInRange() = %d, want 2", got)
	}
}

func TestChannelState_EvaluateNoBaselineClearsFlags(t *testing.T) {
	c := &ChannelState{MessageRate: 100, RaidFlag: true, SpamWaveFlag: true}
	c.Evaluate()
	if c.RaidFlag || c.SpamWaveFlag {
		t.Error("a non-positive baseline should clear both flags rather than divide by it")
	}
}

func TestChannelState_EvaluateTripsSpamWaveThenRaid(t *testing.T) {
	c := &ChannelState{BaselineRate: 10, SpikeThreshold: 5, ActiveUsers: 3}

	c.MessageRate = 40 // ratio 4 < 5: neither flag
	c.Evaluate()
	if c.SpamWaveFlag || c.RaidFlag {
		t.Errorf("ratio below threshold should not trip either flag, got spamWave=%v raid=%v", c.SpamWaveFlag, c.RaidFlag)
	}

	c.MessageRate = 60 // ratio 6 >= 5: spam wave, not yet raid (needs 7.5)
	c.Evaluate()
	if !c.SpamWaveFlag || c.RaidFlag {
		t.Errorf("ratio 6 should trip spam wave only, got spamWave=%v raid=%v", c.SpamWaveFlag, c.RaidFlag)
	}

	c.MessageRate = 80 // ratio 8 >= 7.5: raid too
	c.Evaluate()
	if !c.SpamWaveFlag || !c.RaidFlag {
		t.Errorf("ratio 8 should trip both flags, got spamWave=%v raid=%v", c.SpamWaveFlag, c.RaidFlag)
	}
}

func TestChannelState_PushUserDedupesAndEvicts(t *testing.T) {
	c := &ChannelState{}
	if n := c.PushUser("u1"); n != 1 {
		t.Errorf("PushUser(u1) = %d, want 1", n)
	}
	if n := c.PushUser("u1"); n != 1 {
		t.Errorf("re-pushing the same user should not grow the distinct count, got %d", n)
	}
	if n := c.PushUser("u2"); n != 2 {
		t.Errorf("PushUser(u2) = %d, want 2", n)
	}

	for i := 0; i < recentUserCapacity+5; i++ {
		c.PushUser(string(rune('a' + i)))
	}
	if len(c.RecentUsers) != recentUserCapacity {
		t.Errorf("len(RecentUsers) = %d, want capped at %d", len(c.RecentUsers), recentUserCapacity)
	}
}

func TestWindowRange_Contains(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := WindowRange{Start: start, End: start.Add(time.Minute)}

	if !w.Contains(start) {
		t.Error("range should contain its start (half-open, inclusive start)")
	}
	if w.Contains(w.End) {
		t.Error("range should not contain its end (half-open, exclusive end)")
	}
	if !w.Contains(start.Add(30 * time.Second)) {
		t.Error("range should contain its midpoint")
	}
}
