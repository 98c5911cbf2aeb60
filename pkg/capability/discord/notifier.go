// Package discord delivers notifications to a Discord channel through an
// incoming webhook.
//
// It is meant as a notification fallback for when no browser is connected,
// so an alarm still reaches the user's phone.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// embedColor is the sidebar colour of notification embeds.
const embedColor = 0xE67E22

// WebhookExecutor is the subset of [discordgo.Session] the Notifier uses.
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Config identifies the webhook to post to.
type Config struct {
	WebhookID    string
	WebhookToken string

	// Username overrides the webhook's display name. Default: "Shifra".
	Username string
}

// Notifier posts notifications as webhook embeds.
type Notifier struct {
	exec     WebhookExecutor
	id       string
	token    string
	username string
	now      func() time.Time
}

// Option configures a [Notifier].
type Option func(*Notifier)

// WithExecutor replaces the discordgo session used to call the webhook.
func WithExecutor(e WebhookExecutor) Option {
	return func(n *Notifier) { n.exec = e }
}

// WithClock sets the clock used for embed timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// New validates cfg and returns a Notifier. Without [WithExecutor] it
// creates an unauthenticated discordgo session; webhooks carry their own
// token.
func New(cfg Config, opts ...Option) (*Notifier, error) {
	if cfg.WebhookID == "" || cfg.WebhookToken == "" {
		return nil, errors.New("discord: webhook id and token are required")
	}
	n := &Notifier{
		id:       cfg.WebhookID,
		token:    cfg.WebhookToken,
		username: cfg.Username,
		now:      time.Now,
	}
	if n.username == "" {
		n.username = "Shifra"
	}
	for _, o := range opts {
		o(n)
	}
	if n.exec == nil {
		s, err := discordgo.New("")
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		n.exec = s
	}
	return n, nil
}

// SendNotification posts title and body as an embed and waits for Discord
// to accept it.
func (n *Notifier) SendNotification(ctx context.Context, title, body string) error {
	params := &discordgo.WebhookParams{
		Username: n.username,
		Embeds: []*discordgo.MessageEmbed{{
			Title:       title,
			Description: body,
			Color:       embedColor,
			Timestamp:   n.now().UTC().Format(time.RFC3339),
		}},
	}
	if _, err := n.exec.WebhookExecute(n.id, n.token, true, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: execute webhook: %w", err)
	}
	return nil
}

// Notify posts the notification and logs failures. It satisfies
// capability.Notifier for setups without a fallback chain.
func (n *Notifier) Notify(ctx context.Context, title, body string) {
	if err := n.SendNotification(ctx, title, body); err != nil {
		slog.Warn("discord: notification failed", "title", title, "err", err)
	}
}
