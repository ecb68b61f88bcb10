package interpreter

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/starford/pagebot/internal/command"
)

// Cached memoizes the actionable commands produced by another interpreter so
// repeated instructions skip the remote call. Unknown and Error results are
// never cached.
type Cached struct {
	next  Interpreter
	cache *expirable.LRU[string, command.Command]
}

// NewCached wraps next with an LRU of size entries that expire after ttl.
// A non-positive ttl keeps entries until evicted.
func NewCached(next Interpreter, size int, ttl time.Duration) *Cached {
	if ttl < 0 {
		ttl = 0
	}
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, command.Command](size, nil, ttl),
	}
}

// Interpret implements Interpreter.
func (c *Cached) Interpret(ctx context.Context, instruction string) command.Command {
	// Keyed on the exact text: fallback text updates keep surrounding spaces.
	key := instruction
	if strings.TrimSpace(key) == "" {
		return c.next.Interpret(ctx, instruction)
	}
	if cmd, ok := c.cache.Get(key); ok {
		return cmd
	}
	cmd := c.next.Interpret(ctx, instruction)
	if command.Actionable(cmd) {
		c.cache.Add(key, cmd)
	}
	return cmd
}

// Len returns the number of cached commands.
func (c *Cached) Len() int {
	return c.cache.Len()
}
