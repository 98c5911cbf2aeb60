// Package openaitts synthesises speech with the OpenAI audio API and hands
// the audio to a [Sink] for playback, typically the browser bridge.
package openaitts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/shifra/pkg/capability"
)

const (
	// DefaultModel is the speech model used when none is configured.
	DefaultModel = "gpt-4o-mini-tts"

	// DefaultVoice is the voice used when none is configured.
	DefaultVoice = "alloy"

	// DefaultFormat is the audio container requested from the API.
	DefaultFormat = "mp3"
)

// ErrNoListeners is returned by [Speaker.SpeakText] when the sink has nobody
// to play audio to. Synthesis is skipped in that case.
var ErrNoListeners = errors.New("openaitts: no listeners")

// Sink plays synthesised audio.
type Sink interface {
	PlayAudio(ctx context.Context, u capability.Utterance, audio []byte, format string) error
	Clients() int
}

// Speaker synthesises utterances and forwards the audio to a Sink.
type Speaker struct {
	client oai.Client
	sink   Sink
	model  string
	voice  string
	format string
}

type config struct {
	baseURL    string
	model      string
	voice      string
	timeout    time.Duration
	maxRetries int
}

// Option configures a [Speaker].
type Option func(*config)

// WithBaseURL overrides the OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel sets the speech model.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithVoice sets the OpenAI voice name, such as "alloy" or "nova".
func WithVoice(voice string) Option {
	return func(c *config) { c.voice = voice }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxRetries sets how often a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// New returns a Speaker that plays audio through sink.
func New(apiKey string, sink Sink, opts ...Option) (*Speaker, error) {
	if apiKey == "" {
		return nil, errors.New("openaitts: api key must not be empty")
	}
	if sink == nil {
		return nil, errors.New("openaitts: sink must not be nil")
	}

	cfg := config{model: DefaultModel, voice: DefaultVoice, maxRetries: -1}
	for _, o := range opts {
		o(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}
	if cfg.maxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(cfg.maxRetries))
	}

	return &Speaker{
		client: oai.NewClient(reqOpts...),
		sink:   sink,
		model:  cfg.model,
		voice:  cfg.voice,
		format: DefaultFormat,
	}, nil
}

// Synthesize returns the encoded audio for u.
func (s *Speaker) Synthesize(ctx context.Context, u capability.Utterance) ([]byte, error) {
	params := oai.AudioSpeechNewParams{
		Input:          u.Text,
		Model:          oai.SpeechModel(s.model),
		Voice:          oai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormat(s.format),
	}
	if u.Rate > 0 {
		params.Speed = param.NewOpt(clampSpeed(u.Rate))
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openaitts: synthesize: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openaitts: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("openaitts: empty audio response")
	}
	return audio, nil
}

// SpeakText synthesises u and sends the audio to the sink.
func (s *Speaker) SpeakText(ctx context.Context, u capability.Utterance) error {
	if s.sink.Clients() == 0 {
		return ErrNoListeners
	}
	audio, err := s.Synthesize(ctx, u)
	if err != nil {
		return err
	}
	if err := s.sink.PlayAudio(ctx, u, audio, s.format); err != nil {
		return fmt.Errorf("openaitts: play: %w", err)
	}
	return nil
}

// clampSpeed limits rate to the range the API accepts.
func clampSpeed(rate float64) float64 {
	return min(max(rate, 0.25), 4.0)
}
