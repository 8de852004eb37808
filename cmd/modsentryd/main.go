// Command modsentryd runs the moderation engine as an HTTP service:
// Flow A (POST /v1/content) and Flow B (POST /v1/chat) share the same
// reputation and triage machinery, fanning out to a Postgres sink when
// configured and falling back to an in-memory one otherwise.
package main

import (
	"context"
	"os"
	"time"

	"github.com/crlsmrls/modsentry/config"
	"github.com/crlsmrls/modsentry/logger"
	"github.com/crlsmrls/modsentry/metrics"
	"github.com/crlsmrls/modsentry/mlscoring"
	"github.com/crlsmrls/modsentry/orchestrator"
	"github.com/crlsmrls/modsentry/reputation"
	"github.com/crlsmrls/modsentry/reviewqueue"
	"github.com/crlsmrls/modsentry/server"
	"github.com/crlsmrls/modsentry/sink"
	"github.com/crlsmrls/modsentry/statebackend"
	"github.com/crlsmrls/modsentry/stream"
	"github.com/crlsmrls/modsentry/triage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.InitLogger(cfg.LogLevel, os.Stdout)
	reg := metrics.InitMetrics()

	rep := reputation.New(cfg.ViolationDecayDays, cfg.AccountAgeCapYears, time.Now)
	rules := triage.DefaultRulesConfig()
	tier := triage.New(rules, cfg.DuplicateCacheCapacity)
	scorer := mlscoring.NewGuardedScorer(mlscoring.NewReferenceScorer())
	queue := reviewqueue.New()
	orch := orchestrator.New(rep, tier, scorer, queue, cfg, time.Now)

	backend, err := newStateBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct state backend")
	}
	proc := stream.New(backend, rules, cfg)

	resultSink, err := newSink(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct sink")
	}

	engine := server.NewEngine(orch, proc, resultSink, cfg)
	srv := server.New(cfg, os.Stdout, reg, engine)

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

// newStateBackend picks the Flow B window-state store: Redis when
// configured, otherwise the process-local map (single-instance only).
func newStateBackend(cfg *config.Config) (statebackend.Backend, error) {
	if cfg.RedisAddr == "" {
		return statebackend.NewMemoryBackend(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return statebackend.NewRedisBackend(client), nil
}

// newSink picks the terminal-record destination: Postgres when
// configured, otherwise an in-memory sink (useful for demos and tests).
func newSink(cfg *config.Config) (sink.Sink, error) {
	if cfg.PostgresDSN == "" {
		return sink.NewMemorySink(), nil
	}

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	return sink.NewPostgresSink(pool), nil
}
