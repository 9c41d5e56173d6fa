package speech

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
)

func TestOpenAISynthesizeEncodesPCM(t *testing.T) {
	pcm := []byte{0x00, 0x01, 0xff, 0x7f}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := sonic.Unmarshal(body, &req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req["input"] != "투표하세요" {
			t.Errorf("tone must not be spoken, got input %v", req["input"])
		}
		if req["response_format"] != "pcm" {
			t.Errorf("expected pcm format, got %v", req["response_format"])
		}
		if req["voice"] != DefaultOpenAIVoice {
			t.Errorf("expected default voice, got %v", req["voice"])
		}
		w.Header().Set("Content-Type", "audio/pcm")
		w.Write(pcm)
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", quietLog(), WithOpenAIBaseURL(srv.URL+"/v1"))
	got, err := c.Synthesize(context.Background(), domain.SynthesisRequest{Tone: DefaultTone, Text: "투표하세요"})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if want := base64.StdEncoding.EncodeToString(pcm); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestOpenAISynthesizeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("bad", quietLog(), WithOpenAIBaseURL(srv.URL+"/v1"))
	if _, err := c.Synthesize(context.Background(), domain.SynthesisRequest{Text: "x"}); err == nil {
		t.Fatal("expected error, got nil")
	}
}
