// Termassist is a terminal assistant that organises directories through an
// LLM agent: it lists large directories in batches, moves and renames
// entries, and keeps each conversation thread in a local SQLite database.
//
// Settings come from built-in defaults, an optional YAML file (--config),
// and environment variables, in increasing order of precedence.
//
// Environment variables:
//
//	TERMASSIST_DB_PATH    - SQLite database (default: $XDG_CONFIG_HOME/termassist/termassist.db)
//	QUEUE_BACKEND         - entry queue store: "sqlite" (default), "redis" or "memory"
//	QUEUE_KEY_PREFIX      - queue key prefix (default: "termassist:entries:")
//	LIST_BATCH_SIZE       - entries per listing batch (default: 100)
//	REDIS_HOST            - Redis host for the redis backend (default: "localhost")
//	REDIS_PORT            - Redis port (default: 6379)
//	REDIS_PASSWORD        - Redis password
//	REDIS_DB              - Redis database number (default: 0)
//	LLM_PROVIDER          - "anthropic" (default) or "openai"
//	LLM_API_KEY           - API key; falls back to ANTHROPIC_API_KEY or OPENAI_API_KEY
//	LLM_BASE_URL          - override the provider base URL
//	LLM_MODEL             - model name (default: provider default)
//	LLM_MAX_TOKENS        - max tokens per response (default: 4096)
//	LLM_MAX_ATTEMPTS      - attempts per model call, including the first (default: 3)
//	LLM_TIMEOUT           - per-request timeout, e.g. "120s"
//	MAX_TOOL_ROUNDS       - model calls per turn that may request tools (default: 10)
//	SUMMARY_ENABLED       - compact long histories (default: true)
//	SUMMARY_MIN_MESSAGES  - history length that triggers a summary (default: 24)
//	SUMMARY_MAX_TOKENS    - estimated history size that triggers a summary (default: 6000)
//	DRY_RUN               - report filesystem changes without making them
//	LOG_LEVEL             - "debug", "info", "warn" (default) or "error"
//	LOG_FORMAT            - "text" (default) or "json"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorText("Error: "+scrub(err)))
		stop()
		os.Exit(1)
	}
}
