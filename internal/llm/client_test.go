package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// gatewayHarness is an in-process gateway serving the login and chat
// endpoints, with counters and a pluggable chat handler.
type gatewayHarness struct {
	server     *httptest.Server
	loginCalls atomic.Int64
	chatCalls  atomic.Int64
	tokens     atomic.Int64

	chatHandler func(w http.ResponseWriter, r *http.Request, call int64)
}

func newGatewayHarness(t *testing.T) *gatewayHarness {
	t.Helper()

	h := &gatewayHarness{}
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		writeChatContent(w, "analysis complete")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/appLogin", func(w http.ResponseWriter, r *http.Request) {
		h.loginCalls.Add(1)

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding login body: %v", err)
		}
		if req.ID != "app-id" || req.Secret != "app-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		n := h.tokens.Add(1)
		token := "token-" + string(rune('0'+n))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loginResponse{Token: token})
	})
	mux.HandleFunc("/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		call := h.chatCalls.Add(1)
		h.chatHandler(w, r, call)
	})

	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	return h
}

func (h *gatewayHarness) client(opts ...GatewayOption) *GatewayClient {
	base := []GatewayOption{
		WithRateLimit(1000),
		WithRetryDelay(time.Millisecond),
	}
	return NewGatewayClient(h.server.URL, "app-id", "app-secret", "test-model", append(base, opts...)...)
}

func writeChatContent(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"content": content})
}

func TestGatewayComplete(t *testing.T) {
	h := newGatewayHarness(t)

	var captured chatRequest
	var authHeader string
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding chat body: %v", err)
		}
		writeChatContent(w, "identified three mandates")
	}

	client := h.client(WithSystemPrompt("compliance analyst"))
	got, err := client.Complete(context.Background(), "extract mandates", 0)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "identified three mandates" {
		t.Errorf("Complete() = %q, want %q", got, "identified three mandates")
	}

	if authHeader != "token-1" {
		t.Errorf("Authorization header = %q, want %q", authHeader, "token-1")
	}
	if captured.ID != "app-id" {
		t.Errorf("request id = %q, want %q", captured.ID, "app-id")
	}
	if captured.ModelID != "test-model" {
		t.Errorf("request modelId = %q, want %q", captured.ModelID, "test-model")
	}
	if captured.MaxTokens != DefaultMaxTokens {
		t.Errorf("maxTokens = %d, want default %d", captured.MaxTokens, DefaultMaxTokens)
	}
	if captured.Stream {
		t.Error("stream should be false")
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != "compliance analyst" {
		t.Errorf("system message = %+v", captured.Messages[0])
	}
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != "extract mandates" {
		t.Errorf("user message = %+v", captured.Messages[1])
	}
}

func TestGatewayComplete_TokenReuse(t *testing.T) {
	h := newGatewayHarness(t)
	client := h.client()

	for i := 0; i < 3; i++ {
		if _, err := client.Complete(context.Background(), "prompt", 100); err != nil {
			t.Fatalf("Complete() call %d error: %v", i, err)
		}
	}

	if got := h.loginCalls.Load(); got != 1 {
		t.Errorf("login calls = %d, want 1", got)
	}
	if got := h.chatCalls.Load(); got != 3 {
		t.Errorf("chat calls = %d, want 3", got)
	}
}

func TestGatewayComplete_ReloginOnRejectedToken(t *testing.T) {
	h := newGatewayHarness(t)
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		if r.Header.Get("Authorization") == "token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeChatContent(w, "fresh token worked")
	}

	client := h.client()
	got, err := client.Complete(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "fresh token worked" {
		t.Errorf("Complete() = %q, want %q", got, "fresh token worked")
	}

	if logins := h.loginCalls.Load(); logins != 2 {
		t.Errorf("login calls = %d, want 2", logins)
	}
}

func TestGatewayComplete_RetriesServerError(t *testing.T) {
	h := newGatewayHarness(t)
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		if call < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeChatContent(w, "recovered")
	}

	client := h.client()
	got, err := client.Complete(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "recovered" {
		t.Errorf("Complete() = %q, want %q", got, "recovered")
	}
	if calls := h.chatCalls.Load(); calls != 3 {
		t.Errorf("chat calls = %d, want 3", calls)
	}
}

func TestGatewayComplete_RetriesRateLimit(t *testing.T) {
	h := newGatewayHarness(t)
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		if call == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeChatContent(w, "after backoff")
	}

	client := h.client()
	got, err := client.Complete(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "after backoff" {
		t.Errorf("Complete() = %q, want %q", got, "after backoff")
	}
}

func TestGatewayComplete_ExhaustsRetries(t *testing.T) {
	h := newGatewayHarness(t)
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	client := h.client()
	_, err := client.Complete(context.Background(), "prompt", 100)
	if err == nil {
		t.Fatal("Complete() should fail when the gateway never recovers")
	}
	if calls := h.chatCalls.Load(); calls != MaxAttempts {
		t.Errorf("chat calls = %d, want %d", calls, MaxAttempts)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error should wrap *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", apiErr.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestGatewayComplete_PermanentClientError(t *testing.T) {
	h := newGatewayHarness(t)
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		w.WriteHeader(http.StatusBadRequest)
	}

	client := h.client()
	_, err := client.Complete(context.Background(), "prompt", 100)
	if err == nil {
		t.Fatal("Complete() should fail on a 400")
	}
	if calls := h.chatCalls.Load(); calls != 1 {
		t.Errorf("chat calls = %d, want 1 (no retry on client error)", calls)
	}
}

func TestGatewayComplete_BadCredentials(t *testing.T) {
	h := newGatewayHarness(t)

	client := NewGatewayClient(h.server.URL, "app-id", "wrong-secret", "test-model",
		WithRateLimit(1000), WithRetryDelay(time.Millisecond))
	_, err := client.Complete(context.Background(), "prompt", 100)
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
	if logins := h.loginCalls.Load(); logins != 1 {
		t.Errorf("login calls = %d, want 1 (no retry on bad credentials)", logins)
	}
	if calls := h.chatCalls.Load(); calls != 0 {
		t.Errorf("chat calls = %d, want 0", calls)
	}
}

func TestGatewayComplete_MissingContent(t *testing.T) {
	h := newGatewayHarness(t)
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"resp-1"}`))
	}

	client := h.client()
	_, err := client.Complete(context.Background(), "prompt", 100)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("error = %v, want ErrInvalidResponse", err)
	}
}

func TestGatewayComplete_EmptyContentAllowed(t *testing.T) {
	h := newGatewayHarness(t)
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		writeChatContent(w, "")
	}

	client := h.client()
	got, err := client.Complete(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "" {
		t.Errorf("Complete() = %q, want empty string", got)
	}
}

func TestGatewayComplete_ContextCancelled(t *testing.T) {
	h := newGatewayHarness(t)
	h.chatHandler = func(w http.ResponseWriter, r *http.Request, call int64) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := h.client(WithRetryDelay(time.Minute))

	done := make(chan error, 1)
	go func() {
		_, err := client.Complete(ctx, "prompt", 100)
		done <- err
	}()

	// Let the first attempt fail, then cancel during backoff.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Complete() did not return after cancellation")
	}
}

func TestGatewayPing(t *testing.T) {
	h := newGatewayHarness(t)

	client := h.client()
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}

	bad := NewGatewayClient(h.server.URL, "app-id", "wrong-secret", "test-model",
		WithRateLimit(1000), WithRetryDelay(time.Millisecond))
	if err := bad.Ping(context.Background()); !errors.Is(err, ErrAuth) {
		t.Errorf("Ping() with bad credentials = %v, want ErrAuth", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", ErrNetwork, true},
		{"rate limited", ErrRateLimited, true},
		{"bad gateway", &APIError{StatusCode: 502, Message: "bad gateway"}, true},
		{"server error", &APIError{StatusCode: 500, Message: "oops"}, true},
		{"client error", &APIError{StatusCode: 400, Message: "bad request"}, false},
		{"auth error", ErrAuth, false},
		{"invalid response", ErrInvalidResponse, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGatewayClient_ImplementsClient(t *testing.T) {
	var _ Client = (*GatewayClient)(nil)
}
