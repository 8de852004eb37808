// Package sink implements C14: pluggable output adapters the engine
// writes its terminal records to. Schema ownership stays outside the
// engine per spec.md's Non-goals — a sink only issues inserts/appends.
package sink

import (
	"context"

	"github.com/crlsmrls/modsentry/domain"
)

// Sink is the output boundary for both flows: a terminal
// ModerationResult and, on escalation, a ReviewTask for Flow A; a
// terminal FlinkDecision for Flow B; and a DeadLetter for any record
// that fails validation or hits a fatal tier error (spec §7).
type Sink interface {
	EmitModerationResult(ctx context.Context, result domain.ModerationResult) error
	EmitReviewTask(ctx context.Context, task domain.ReviewTask) error
	EmitFlinkDecision(ctx context.Context, decision domain.FlinkDecision) error
	DeadLetter(ctx context.Context, recordKind, recordID string, cause error) error
}
