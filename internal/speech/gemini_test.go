package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
)

func TestGeminiSynthesize(t *testing.T) {
	payload := silence(480)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1beta/models/"+DefaultGeminiModel+":generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		var req geminiRequest
		if err := sonic.Unmarshal(body, &req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if got := req.Contents[0].Parts[0].Text; got != DefaultTone+" 토론을 시작합니다" {
			t.Errorf("unexpected prompt %q", got)
		}
		if got := req.GenerationConfig.ResponseModalities; len(got) != 1 || got[0] != "AUDIO" {
			t.Errorf("unexpected modalities %v", got)
		}
		if got := req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; got != DefaultGeminiVoice {
			t.Errorf("expected default voice, got %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":"`+payload+`"}}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", quietLog(), WithGeminiBaseURL(srv.URL))
	got, err := c.Synthesize(context.Background(), domain.SynthesisRequest{Tone: DefaultTone, Text: "토론을 시작합니다"})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got != payload {
		t.Fatalf("payload mismatch: got %d chars, want %d", len(got), len(payload))
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, "API key not valid"},
		{"plain error", http.StatusBadGateway, `upstream down`, "upstream down"},
		{"no audio", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`, "no audio"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no audio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewGeminiClient("k", quietLog(), WithGeminiBaseURL(srv.URL))
			_, err := c.Synthesize(context.Background(), domain.SynthesisRequest{Text: "x"})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestGeminiRequestVoiceOverridesDefault(t *testing.T) {
	var voice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &req)
		voice = req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/pcm","data":"AAA="}}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient("k", quietLog(), WithGeminiBaseURL(srv.URL), WithGeminiVoice("Puck"))
	if _, err := c.Synthesize(context.Background(), domain.SynthesisRequest{Text: "x", Voice: "Charon"}); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if voice != "Charon" {
		t.Fatalf("expected request voice Charon, got %q", voice)
	}
}
