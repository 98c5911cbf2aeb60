// Package mock provides a recording [discord.WebhookExecutor] for tests.
package mock

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Execution records one WebhookExecute call.
type Execution struct {
	WebhookID string
	Token     string
	Wait      bool
	Params    *discordgo.WebhookParams
}

// Executor is a mock webhook executor. Safe for concurrent use.
type Executor struct {
	// Err, when non-nil, is returned by every call.
	Err error

	mu    sync.Mutex
	calls []Execution
}

// WebhookExecute records the call and returns Err.
func (e *Executor) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Execution{WebhookID: webhookID, Token: token, Wait: wait, Params: data})
	if e.Err != nil {
		return nil, e.Err
	}
	return &discordgo.Message{ID: "1"}, nil
}

// Calls returns a copy of the recorded calls.
func (e *Executor) Calls() []Execution {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Execution(nil), e.calls...)
}
