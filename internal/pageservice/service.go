// Package pageservice runs one instruction through the interpret, apply,
// format and record pipeline shared by every entry point.
package pageservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/pagebot/internal/apperr"
	"github.com/starford/pagebot/internal/command"
	"github.com/starford/pagebot/internal/format"
	"github.com/starford/pagebot/internal/history"
	"github.com/starford/pagebot/internal/interpreter"
	"github.com/starford/pagebot/internal/state"
)

// Publisher receives every committed document.
type Publisher interface {
	PublishState(doc any)
}

// Outcome is the result of processing one instruction.
type Outcome struct {
	Command command.Command
	Result  state.Result
	Message string
	State   state.Document
}

// Success reports whether the instruction mapped to an actionable command.
func (o Outcome) Success() bool {
	return format.Succeeded(o.Command)
}

// Reply is the messaging-channel text for the outcome.
func (o Outcome) Reply() string {
	return format.Reply(o.Command, o.Message)
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder enables the audit log.
func WithRecorder(r history.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithPublisher pushes committed documents to p, including ones reloaded
// from the backend. The current document is pushed once when the service is
// created.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service coordinates the interpreter, the state store and the audit log.
type Service struct {
	interp    interpreter.Interpreter
	store     *state.Store
	recorder  history.Recorder
	publisher Publisher
	logger    *slog.Logger
}

// New creates a service.
func New(interp interpreter.Interpreter, store *state.Store, opts ...Option) *Service {
	s := &Service{interp: interp, store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher != nil {
		pub := s.publisher
		store.OnChange(func(doc state.Document) { pub.PublishState(doc) })
		pub.PublishState(store.Snapshot())
	}
	return s
}

// Process interprets instruction and applies it. The returned error is non-nil
// only when the changed document could not be persisted; Outcome then carries
// the failure message and the unchanged document. The interpreter sees the
// instruction verbatim; the audit log stores it trimmed.
func (s *Service) Process(ctx context.Context, instruction, source string) (Outcome, error) {
	cmd := s.interp.Interpret(ctx, instruction)
	res, err := s.store.Apply(ctx, cmd)
	if err != nil {
		s.logger.Error("pageservice: apply failed",
			slog.String("action", string(cmd.Action())),
			slog.String("error", err.Error()),
		)
		out := Outcome{
			Command: command.Error{Reason: command.ReasonPersistFailed},
			Result:  res,
			Message: format.FailureMessage,
			State:   s.store.Snapshot(),
		}
		s.record(ctx, source, instruction, out)
		return out, fmt.Errorf("apply %s: %w", cmd.Action(), err)
	}

	out := Outcome{
		Command: cmd,
		Result:  res,
		Message: format.Message(cmd, res),
		State:   s.store.Snapshot(),
	}
	s.record(ctx, source, instruction, out)
	return out, nil
}

func (s *Service) record(ctx context.Context, source, instruction string, out Outcome) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(ctx, history.Entry{
		Source:      source,
		Instruction: strings.TrimSpace(instruction),
		Action:      out.Command.Action(),
		Message:     out.Message,
		Applied:     out.Result.Applied && out.Success(),
	})
	if err != nil {
		s.logger.Warn("pageservice: history record failed", slog.String("error", err.Error()))
	}
}

// State returns the current document.
func (s *Service) State() state.Document {
	return s.store.Snapshot()
}

// History returns the most recent audit entries, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if s.recorder == nil {
		return nil, fmt.Errorf("history disabled: %w", apperr.ErrNotFound)
	}
	return s.recorder.Recent(ctx, limit)
}
