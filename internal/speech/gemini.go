package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// Compile-time interface check.
var _ domain.Synthesizer = (*GeminiClient)(nil)

// GeminiOption configures the Gemini TTS client.
type GeminiOption func(*GeminiClient)

// WithGeminiVoice sets the prebuilt voice used when a request names none.
func WithGeminiVoice(voice string) GeminiOption {
	return func(c *GeminiClient) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// WithGeminiModel sets the TTS model.
func WithGeminiModel(model string) GeminiOption {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithGeminiBaseURL overrides the API endpoint. Tests point it at an
// httptest server.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPTimeout sets the HTTP client timeout for TTS requests.
func WithHTTPTimeout(d time.Duration) GeminiOption {
	return func(c *GeminiClient) {
		c.httpClient.Timeout = d
	}
}

// GeminiClient synthesizes speech with the Gemini generateContent API
// using AUDIO response modality.
type GeminiClient struct {
	apiKey     string
	model      string
	voice      string
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewGeminiClient creates a Gemini TTS client.
func NewGeminiClient(apiKey string, log *logger.Logger, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:  apiKey,
		model:   DefaultGeminiModel,
		voice:   DefaultGeminiVoice,
		baseURL: DefaultGeminiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Voice returns the default voice name.
func (c *GeminiClient) Voice() string { return c.voice }

// CacheKey names the backend, model and default voice, so cached audio is
// never replayed for a different one.
func (c *GeminiClient) CacheKey() string { return "gemini/" + c.model + "/" + c.voice }

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig geminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type geminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Synthesize returns the base64 PCM16 payload for req.
func (c *GeminiClient) Synthesize(ctx context.Context, req domain.SynthesisRequest) (string, error) {
	voice := req.Voice
	if voice == "" {
		voice = c.voice
	}

	body, err := sonic.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.InstructionText()}},
		}},
		GenerationConfig: geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: geminiSpeechConfig{
				VoiceConfig: geminiVoiceConfig{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: voice},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	c.log.Debug("gemini tts: synthesizing %d chars with voice %s", len(req.Text), voice)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)
	httpReq.Header.Set("User-Agent", "MysteryHost/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var out geminiResponse
	if resp.StatusCode != http.StatusOK {
		if err := sonic.Unmarshal(raw, &out); err == nil && out.Error != nil {
			return "", fmt.Errorf("gemini tts error %d (%s): %s", resp.StatusCode, out.Error.Status, out.Error.Message)
		}
		return "", fmt.Errorf("gemini tts error %d: %s", resp.StatusCode, string(raw))
	}

	if err := sonic.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				c.log.Debug("gemini tts: got %d base64 chars (%s)", len(part.InlineData.Data), part.InlineData.MimeType)
				return part.InlineData.Data, nil
			}
		}
	}
	return "", fmt.Errorf("gemini tts: response carried no audio")
}
