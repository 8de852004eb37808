package sink

import (
	"context"
	"encoding/json"

	"github.com/crlsmrls/modsentry/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink writes terminal records as parameterized inserts into
// moderation_results / review_tasks / flink_decisions / dead_letters.
// Schema ownership is external per spec.md's Non-goals; this sink only
// issues inserts against tables it assumes already exist.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink wraps an existing pgx connection pool.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (s *PostgresSink) EmitModerationResult(ctx context.Context, result domain.ModerationResult) error {
	violations, err := json.Marshal(result.Violations)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO moderation_results
			(content_id, decision, source, severity, violations, combined_risk, tier_reached, needs_human_review, notes, processing_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.ContentID, result.Decision, result.Source, int(result.Severity), violations,
		result.CombinedRisk, result.TierReached, result.NeedsHumanReview, result.Notes,
		result.ProcessingTime.Milliseconds(),
	)
	return err
}

func (s *PostgresSink) EmitReviewTask(ctx context.Context, task domain.ReviewTask) error {
	imageRefs, err := json.Marshal(task.ImageRefs)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO review_tasks
			(content_id, priority, created_at, deadline, text_preview, image_refs, reason, ml_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ContentID, task.Priority, task.CreatedAt, task.Deadline, task.TextPreview,
		imageRefs, task.Reason, task.MLConfidence,
	)
	return err
}

func (s *PostgresSink) EmitFlinkDecision(ctx context.Context, decision domain.FlinkDecision) error {
	violations, err := json.Marshal(decision.Violations)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO flink_decisions
			(message_id, user_id, channel_id, decision, severity, violations, spam_score, toxicity_score, processing_ms,
			 count_1m, count_5m, rate_limited, repeat, bursting, late, window_start, window_end, session_start, session_end,
			 channel_message_rate, raid_detected, spam_wave)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		decision.MessageID, decision.UserID, decision.ChannelID, decision.Decision, int(decision.Severity),
		violations, decision.SpamScore, decision.ToxicityScore, decision.ProcessingTime.Milliseconds(),
		decision.Count1m, decision.Count5m, decision.RateLimited, decision.Repeat, decision.Bursting,
		decision.Late, decision.Window.Start, decision.Window.End, decision.SessionStart, decision.SessionEnd,
		decision.ChannelMessageRate, decision.RaidDetected, decision.SpamWave,
	)
	return err
}

func (s *PostgresSink) DeadLetter(ctx context.Context, recordKind, recordID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dead_letters (record_kind, record_id, cause)
		VALUES ($1, $2, $3)`,
		recordKind, recordID, msg,
	)
	return err
}
