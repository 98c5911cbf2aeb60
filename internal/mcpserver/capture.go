package mcpserver

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/MrWong99/shifra/pkg/capability"
)

// capture collects the effects of one command so they can be returned to
// the MCP client.
type capture struct {
	mu       sync.Mutex
	spoken   []string
	opened   []string
	fallback []string
}

func (c *capture) set() capability.Set {
	return capability.Set{Speaker: c, Notifier: c, Opener: c, Renderer: c}
}

func (c *capture) Speak(_ context.Context, u capability.Utterance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spoken = append(c.spoken, u.Text)
}

// Notify is not part of the command result.
func (c *capture) Notify(context.Context, string, string) {}

func (c *capture) Open(_ context.Context, url string, _ bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = append(c.opened, url)
}

func (c *capture) RenderFallback(_ context.Context, _ string, urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = slices.Clone(urls)
}

func (c *capture) output(rule string) CommandOutput {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := CommandOutput{
		Rule:     rule,
		Spoken:   slices.Clone(c.spoken),
		Opened:   slices.Clone(c.opened),
		Fallback: slices.Clone(c.fallback),
	}
	if out.Spoken == nil {
		out.Spoken = []string{}
	}
	return out
}

func joinSpoken(spoken []string) string {
	return strings.Join(spoken, " ")
}
