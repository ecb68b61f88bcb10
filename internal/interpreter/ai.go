package interpreter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/pagebot/internal/apperr"
	"github.com/starford/pagebot/internal/command"
	"github.com/starford/pagebot/internal/llm"
)

// AI interprets instructions by asking a remote model for the command's wire form.
type AI struct {
	completer llm.Completer
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAI creates the model-backed interpreter. A non-positive timeout uses DefaultTimeout.
func NewAI(completer llm.Completer, timeout time.Duration, logger *slog.Logger) *AI {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AI{completer: completer, timeout: timeout, logger: logger}
}

type completion struct {
	text string
	err  error
}

// Interpret implements Interpreter. The remote call is made once; any failure
// or a reply that does not decode to a valid command yields command.Error.
func (a *AI) Interpret(ctx context.Context, instruction string) command.Command {
	if strings.TrimSpace(instruction) == "" {
		return command.Unknown{Reason: command.ReasonNoInstruction}
	}
	cmd, err := a.interpret(ctx, instruction)
	if err != nil {
		a.logger.Warn("interpreter: AI processing failed",
			slog.String("instruction", instruction),
			slog.String("error", err.Error()))
		return command.Error{Reason: command.ReasonAIFailed}
	}
	return cmd
}

func (a *AI) interpret(ctx context.Context, instruction string) (command.Command, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// The completer may ignore ctx; stop waiting on it regardless.
	done := make(chan completion, 1)
	go func() {
		text, err := a.completer.Complete(ctx, Prompt(instruction))
		done <- completion{text: text, err: err}
	}()

	var c completion
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", apperr.ErrInterpreterFailure, ctx.Err())
	case c = <-done:
	}
	if c.err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInterpreterFailure, c.err)
	}
	cleaned := StripCodeFence(c.text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", apperr.ErrInterpreterFailure)
	}
	return command.Decode([]byte(cleaned))
}
