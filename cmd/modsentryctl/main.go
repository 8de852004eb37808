// Command modsentryctl is the operator-facing companion to modsentryd:
// today it offers a single "replay" subcommand that feeds a JSONL
// fixture of Content or ChatMessage records through the core and
// prints the resulting decisions, for smoke-testing without a broker.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/crlsmrls/modsentry/config"
	"github.com/crlsmrls/modsentry/domain"
	"github.com/crlsmrls/modsentry/mlscoring"
	"github.com/crlsmrls/modsentry/orchestrator"
	"github.com/crlsmrls/modsentry/reputation"
	"github.com/crlsmrls/modsentry/reviewqueue"
	"github.com/crlsmrls/modsentry/statebackend"
	"github.com/crlsmrls/modsentry/stream"
	"github.com/crlsmrls/modsentry/triage"
	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: modsentryctl replay --fixture <path> --flow {content|chat}")
		os.Exit(2)
	}

	switch os.Args[1] {
	case "replay":
		if err := runReplay(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		os.Exit(2)
	}
}

func runReplay(args []string) error {
	fs := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	fixture := fs.String("fixture", "", "path to a JSONL fixture of records")
	flow := fs.String("flow", "content", "which flow to replay records through: content or chat")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fixture == "" {
		return fmt.Errorf("--fixture is required")
	}

	f, err := os.Open(*fixture)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg := config.DefaultConfig()
	now := time.Now

	switch *flow {
	case "content":
		rep := reputation.New(cfg.ViolationDecayDays, cfg.AccountAgeCapYears, now)
		rules := triage.DefaultRulesConfig()
		tier := triage.New(rules, cfg.DuplicateCacheCapacity)
		scorer := mlscoring.NewGuardedScorer(mlscoring.NewReferenceScorer())
		queue := reviewqueue.New()
		orch := orchestrator.New(rep, tier, scorer, queue, cfg, now)

		return replayLines(f, func(line []byte) error {
			var content domain.Content
			if err := json.Unmarshal(line, &content); err != nil {
				return err
			}
			result, err := orch.Process(context.Background(), content, false)
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	case "chat":
		rules := triage.DefaultRulesConfig()
		backend := statebackend.NewMemoryBackend()
		proc := stream.New(backend, rules, cfg)

		return replayLines(f, func(line []byte) error {
			var msg domain.ChatMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				return err
			}
			decision, err := proc.Process(context.Background(), msg)
			if err != nil {
				return err
			}
			return printJSON(decision)
		})
	default:
		return fmt.Errorf("unknown --flow %q, want content or chat", *flow)
	}
}

func replayLines(f *os.File, handle func(line []byte) error) error {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := handle(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(v)
}
