package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/crlsmrls/modsentry/config"
	"github.com/crlsmrls/modsentry/domain"
	"github.com/crlsmrls/modsentry/orchestrator"
	"github.com/crlsmrls/modsentry/sink"
	"github.com/crlsmrls/modsentry/stream"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Engine is the core the HTTP façade is a thin adapter over (spec.md
// §1, SPEC_FULL §4.8 C17): it owns nothing storage-shaped itself,
// delegating terminal records to a Sink.
type Engine struct {
	orchestrator  *orchestrator.Orchestrator
	processor     *stream.Processor
	sink          sink.Sink
	validate      *validator.Validate
	flowADeadline time.Duration
	flowBBudget   time.Duration
}

// NewEngine wires an HTTP-facing Engine around the already-constructed
// core components, applying the end-to-end budgets of §5 at the one
// place both flows funnel through.
func NewEngine(o *orchestrator.Orchestrator, p *stream.Processor, s sink.Sink, cfg *config.Config) *Engine {
	return &Engine{
		orchestrator:  o,
		processor:     p,
		sink:          s,
		validate:      validator.New(),
		flowADeadline: cfg.FlowADeadline,
		flowBBudget:   cfg.FlowBBudget,
	}
}

// contentInput is the wire shape of a Flow A ingestion request (§6).
type contentInput struct {
	ContentID   string            `json:"content_id" validate:"required"`
	ContentType string            `json:"content_type" validate:"required"`
	UserID      string            `json:"user_id" validate:"required"`
	TextContent string            `json:"text_content"`
	ImageURL    string            `json:"image_url"`
	MediaURLs   []string          `json:"media_urls"`
	CreatedAt   time.Time         `json:"created_at" validate:"required"`
	ParentID    string            `json:"parent_id"`
	ChannelID   string            `json:"channel_id"`
	Metadata    map[string]string `json:"metadata"`
	Bursting    bool              `json:"bursting"`
}

// chatInput is the wire shape of a Flow B ingestion request (§6).
type chatInput struct {
	MessageID string `json:"message_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	ChannelID string `json:"channel_id" validate:"required"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp" validate:"required"`
}

// ContentHandler implements POST /v1/content: Flow A ingestion.
func (e *Engine) ContentHandler(w http.ResponseWriter, r *http.Request) {
	var in contentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := e.validate.Struct(in); err != nil {
		e.deadLetter(r, "content", in.ContentID, err)
		writeError(w, r, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	content := domain.Content{
		ID:        in.ContentID,
		UserID:    in.UserID,
		Kind:      domain.ContentKind(in.ContentType),
		Text:      in.TextContent,
		ImageURL:  in.ImageURL,
		MediaURLs: in.MediaURLs,
		CreatedAt: in.CreatedAt,
		ParentID:  in.ParentID,
		ChannelID: in.ChannelID,
		Metadata:  in.Metadata,
	}

	ctx, cancel := context.WithTimeout(r.Context(), e.flowADeadline)
	defer cancel()

	result, err := e.orchestrator.Process(ctx, content, in.Bursting)
	if err != nil {
		e.deadLetter(r, "content", in.ContentID, err)
		writeError(w, r, http.StatusUnprocessableEntity, "processing failed: "+err.Error())
		return
	}

	if err := e.sink.EmitModerationResult(r.Context(), result); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to emit moderation result")
	}

	writeJSON(w, http.StatusOK, result)
}

// ChatHandler implements POST /v1/chat: Flow B ingestion.
func (e *Engine) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var in chatInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := e.validate.Struct(in); err != nil {
		e.deadLetter(r, "chat", in.MessageID, err)
		writeError(w, r, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	msg := domain.ChatMessage{
		ID:        in.MessageID,
		UserID:    in.UserID,
		ChannelID: in.ChannelID,
		Text:      in.Text,
		EventTime: time.Unix(in.Timestamp, 0).UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), e.flowBBudget)
	defer cancel()

	decision, err := e.processor.Process(ctx, msg)
	if err != nil {
		e.deadLetter(r, "chat", in.MessageID, err)
		writeError(w, r, http.StatusUnprocessableEntity, "processing failed: "+err.Error())
		return
	}

	if err := e.sink.EmitFlinkDecision(r.Context(), decision); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to emit flink decision")
	}

	writeJSON(w, http.StatusOK, decision)
}

func (e *Engine) deadLetter(r *http.Request, kind, id string, cause error) {
	if err := e.sink.DeadLetter(r.Context(), kind, id, cause); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write dead letter")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	log.Ctx(r.Context()).Warn().Int("status", status).Msg(msg)
	writeJSON(w, status, map[string]string{"error": msg})
}
