// Package interpreter turns free-text instructions into commands.
//
// Two strategies satisfy the same Interpreter contract: Pattern extracts the
// command with keyword and regular-expression matching, AI delegates to a
// remote language model. Neither ever returns an error; failures surface as
// command.Unknown or command.Error.
package interpreter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/pagebot/internal/command"
	"github.com/starford/pagebot/internal/llm"
)

// Strategy names accepted by New.
const (
	StrategyPattern = "pattern"
	StrategyAI      = "ai"
)

// DefaultTimeout bounds a remote interpretation when none is configured.
const DefaultTimeout = 15 * time.Second

// Interpreter derives a command from an instruction.
type Interpreter interface {
	Interpret(ctx context.Context, instruction string) command.Command
}

// Options selects and tunes a strategy.
type Options struct {
	Strategy   string
	Timeout    time.Duration
	StrictText bool
	CacheSize  int
	CacheTTL   time.Duration
}

// New builds the interpreter named by opts.Strategy. The AI strategy requires a
// non-nil completer and is wrapped in a result cache when opts.CacheSize > 0.
func New(opts Options, completer llm.Completer, logger *slog.Logger) (Interpreter, error) {
	switch opts.Strategy {
	case "", StrategyPattern:
		return NewPattern(opts.StrictText), nil
	case StrategyAI:
		if completer == nil {
			return nil, fmt.Errorf("interpreter: strategy %q needs an LLM client", StrategyAI)
		}
		var in Interpreter = NewAI(completer, opts.Timeout, logger)
		if opts.CacheSize > 0 {
			in = NewCached(in, opts.CacheSize, opts.CacheTTL)
		}
		return in, nil
	default:
		return nil, fmt.Errorf("interpreter: unknown strategy %q", opts.Strategy)
	}
}
