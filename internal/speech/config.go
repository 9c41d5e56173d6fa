package speech

import "time"

// Default voice and model for the Gemini speech backend.
const (
	DefaultGeminiModel = "gemini-2.5-flash-preview-tts"
	DefaultGeminiVoice = "Kore"
	DefaultGeminiURL   = "https://generativelanguage.googleapis.com"
)

// Defaults for the OpenAI speech backend. The pcm response format is raw
// 24 kHz 16-bit mono little-endian, the same shape Gemini returns.
const (
	DefaultOpenAIModel = "gpt-4o-mini-tts"
	DefaultOpenAIVoice = "sage"
)

// DefaultTone is the delivery instruction sent ahead of every line.
const DefaultTone = "아주 차분하고 미스테리한 톤으로 말해주세요:"

// DefaultSynthesisTimeout bounds a single synthesis call.
const DefaultSynthesisTimeout = 30 * time.Second

// Env var names for provider credentials.
const (
	EnvGeminiKey = "GEMINI_API_KEY"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// Provider names accepted by the -provider flag.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)
