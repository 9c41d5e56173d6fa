package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// Compile-time interface check.
var _ domain.Synthesizer = (*OpenAIClient)(nil)

// OpenAIOption configures the OpenAI TTS client.
type OpenAIOption func(*OpenAIClient)

// WithOpenAIVoice sets the voice used when a request names none.
func WithOpenAIVoice(voice string) OpenAIOption {
	return func(c *OpenAIClient) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// WithOpenAIModel sets the speech model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithOpenAIBaseURL overrides the API base URL (must include /v1).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.baseURL = url
	}
}

// OpenAIClient synthesizes speech with the OpenAI audio/speech endpoint.
// The tone goes in as instructions rather than as spoken text.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	voice   string
	baseURL string
	log     *logger.Logger
}

// NewOpenAIClient creates an OpenAI TTS client.
func NewOpenAIClient(apiKey string, log *logger.Logger, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		model: DefaultOpenAIModel,
		voice: DefaultOpenAIVoice,
		log:   log,
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	c.client = openai.NewClientWithConfig(cfg)
	return c
}

// Voice returns the default voice name.
func (c *OpenAIClient) Voice() string { return c.voice }

// CacheKey names the backend, model and default voice, so cached audio is
// never replayed for a different one.
func (c *OpenAIClient) CacheKey() string { return "openai/" + c.model + "/" + c.voice }

// Synthesize requests raw PCM and returns it base64 encoded, so both
// backends hand the speaker the same payload shape.
func (c *OpenAIClient) Synthesize(ctx context.Context, req domain.SynthesisRequest) (string, error) {
	voice := req.Voice
	if voice == "" {
		voice = c.voice
	}
	c.log.Debug("openai tts: synthesizing %d chars with voice %s", len(req.Text), voice)

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		Instructions:   req.Tone,
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return "", fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Close()

	pcm, err := io.ReadAll(resp)
	if err != nil {
		return "", fmt.Errorf("reading audio data: %w", err)
	}
	if len(pcm) == 0 {
		return "", fmt.Errorf("openai tts: response carried no audio")
	}

	c.log.Debug("openai tts: got %d bytes of audio", len(pcm))
	return base64.StdEncoding.EncodeToString(pcm), nil
}
