package cerebras

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/RonitGandotra05/agent-xray/internal/oracle"
	"github.com/RonitGandotra05/agent-xray/internal/testutil"
)

func TestClient_Complete(t *testing.T) {
	var captured chatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"faulty_step\":null}"}}]}`))
	}))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL), WithModel("llama-3.3-70b"))

	text, err := client.Complete(context.Background(), oracle.Request{
		SystemInstructions: "judge the transition",
		Prompt:             "step window",
		MaxOutputTokens:    1000,
		Temperature:        0.1,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if text != `{"faulty_step":null}` {
		t.Errorf("Complete() = %q", text)
	}
	if captured.Model != "llama-3.3-70b" {
		t.Errorf("model = %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Errorf("messages = %+v, want system then user", captured.Messages)
	}
	if captured.Temperature != 0.1 || captured.MaxTokens != 1000 {
		t.Errorf("temperature/max_tokens = %v/%v", captured.Temperature, captured.MaxTokens)
	}
}

func TestClient_CompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"authentication_error"}}`))
	}))
	defer server.Close()

	client := New("bad-key", WithBaseURL(server.URL))

	_, err := client.Complete(context.Background(), oracle.Request{Prompt: "x"})
	if err == nil {
		t.Fatal("Complete() error = nil, want oracle error")
	}

	var oerr *oracle.Error
	if !errors.As(err, &oerr) {
		t.Fatalf("error type = %T, want *oracle.Error", err)
	}
	if oerr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", oerr.StatusCode)
	}
	if oerr.Message != "invalid api key" {
		t.Errorf("Message = %q", oerr.Message)
	}
}

func TestClient_CompleteTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := New("key", WithBaseURL(server.URL))

	_, err := client.Complete(context.Background(), oracle.Request{Prompt: "x"})

	var oerr *oracle.Error
	if !errors.As(err, &oerr) {
		t.Fatalf("error type = %T, want *oracle.Error", err)
	}
	if oerr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failure", oerr.StatusCode)
	}
	if oerr.Unwrap() == nil {
		t.Error("transport error lost its cause")
	}
}

// TestClient_CompleteRecorded replays a recorded exchange against the real
// API. Record with VCR_MODE=record and a valid CEREBRAS_API_KEY.
func TestClient_CompleteRecorded(t *testing.T) {
	if _, err := os.Stat("testdata/fixtures/complete.yaml"); err != nil {
		t.Skip("no recorded cassette; run with VCR_MODE=record to create one")
	}

	r, cleanup := testutil.NewVCRRecorder(t, "complete")
	defer cleanup()

	client := New(os.Getenv("CEREBRAS_API_KEY"),
		WithHTTPClient(testutil.VCRHTTPClient(r)))

	text, err := client.Complete(context.Background(), oracle.Request{
		SystemInstructions: "Respond with the single word ok.",
		Prompt:             "ok?",
		MaxOutputTokens:    16,
		Temperature:        0.1,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text == "" {
		t.Error("Complete() returned empty text")
	}
}
