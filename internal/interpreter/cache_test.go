package interpreter

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/pagebot/internal/command"
)

type countingInterpreter struct {
	calls atomic.Int32
	reply command.Command
}

func (c *countingInterpreter) Interpret(context.Context, string) command.Command {
	c.calls.Add(1)
	return c.reply
}

func TestCachedReusesActionableCommands(t *testing.T) {
	inner := &countingInterpreter{reply: command.UpdateText{Text: "hi"}}
	c := NewCached(inner, 8, time.Minute)

	for i := 0; i < 3; i++ {
		assert.Equal(t, command.UpdateText{Text: "hi"}, c.Interpret(context.Background(), " update text to hi "))
	}
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCachedKeysOnExactText(t *testing.T) {
	inner := &countingInterpreter{reply: command.UpdateText{Text: "hi"}}
	c := NewCached(inner, 8, time.Minute)

	c.Interpret(context.Background(), "hi")
	c.Interpret(context.Background(), "  hi  ")
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestCachedSkipsFailures(t *testing.T) {
	for _, reply := range []command.Command{
		command.Error{Reason: command.ReasonAIFailed},
		command.Unknown{Reason: command.ReasonUnrecognized},
	} {
		inner := &countingInterpreter{reply: reply}
		c := NewCached(inner, 8, time.Minute)
		c.Interpret(context.Background(), "x")
		c.Interpret(context.Background(), "x")
		assert.Equal(t, int32(2), inner.calls.Load())
		assert.Zero(t, c.Len())
	}
}

func TestCachedExpires(t *testing.T) {
	inner := &countingInterpreter{reply: command.UpdateLogo{URL: "a.com"}}
	c := NewCached(inner, 8, 20*time.Millisecond)
	c.Interpret(context.Background(), "change logo a.com")
	time.Sleep(60 * time.Millisecond)
	c.Interpret(context.Background(), "change logo a.com")
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestNewSelectsStrategy(t *testing.T) {
	in, err := New(Options{}, nil, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &Pattern{}, in)

	in, err = New(Options{Strategy: StrategyPattern, StrictText: true}, nil, slog.Default())
	require.NoError(t, err)
	assert.True(t, in.(*Pattern).StrictText)

	_, err = New(Options{Strategy: StrategyAI}, nil, slog.Default())
	assert.Error(t, err)

	in, err = New(Options{Strategy: StrategyAI}, replying(`{"action":"unknown"}`), slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &AI{}, in)

	in, err = New(Options{Strategy: StrategyAI, CacheSize: 4}, replying(`{"action":"unknown"}`), slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, in)

	_, err = New(Options{Strategy: "oracle"}, nil, slog.Default())
	assert.Error(t, err)
}
