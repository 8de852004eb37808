package sink

import (
	"context"
	"sync"

	"github.com/crlsmrls/modsentry/domain"
)

// DeadLetterRecord captures a record the engine could not carry to a
// terminal decision.
type DeadLetterRecord struct {
	RecordKind string
	RecordID   string
	Cause      string
}

// MemorySink is the in-process Sink used by tests and by cmd/modsentryd
// when no Postgres DSN is configured: it retains every emitted record for inspection
// rather than writing to external storage.
type MemorySink struct {
	mu          sync.Mutex
	Results     []domain.ModerationResult
	Tasks       []domain.ReviewTask
	Decisions   []domain.FlinkDecision
	DeadLetters []DeadLetterRecord
}

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) EmitModerationResult(_ context.Context, result domain.ModerationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Results = append(s.Results, result)
	return nil
}

func (s *MemorySink) EmitReviewTask(_ context.Context, task domain.ReviewTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tasks = append(s.Tasks, task)
	return nil
}

func (s *MemorySink) EmitFlinkDecision(_ context.Context, decision domain.FlinkDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Decisions = append(s.Decisions, decision)
	return nil
}

func (s *MemorySink) DeadLetter(_ context.Context, recordKind, recordID string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	s.DeadLetters = append(s.DeadLetters, DeadLetterRecord{RecordKind: recordKind, RecordID: recordID, Cause: msg})
	return nil
}
