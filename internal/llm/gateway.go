package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the HTTP timeout for generation requests. Mandate
	// extraction over a full regulation routinely takes over a minute.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxTokens is the response budget when callers pass none.
	DefaultMaxTokens = 2000

	// DefaultRateLimit is the request rate in requests per second.
	DefaultRateLimit = 2.0

	// MaxAttempts is how many times a call is tried before giving up.
	MaxAttempts = 3

	loginPath = "/v1/auth/appLogin"
	chatPath  = "/v1/chat"

	chatTemperature = 0.7
	chatTopP        = 0.95

	defaultSystemPrompt = "You are an AI assistant for regulatory compliance analysis."
)

// GatewayClient talks to a token-authenticated chat gateway. It logs in
// with application credentials, caches the token, and re-authenticates once
// when the server rejects it.
type GatewayClient struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	baseURL      string
	appID        string
	appSecret    string
	model        string
	systemPrompt string
	retryDelay   time.Duration

	mu    sync.Mutex
	token string
}

// GatewayOption configures a GatewayClient.
type GatewayOption func(*GatewayClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) GatewayOption {
	return func(c *GatewayClient) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(rps float64) GatewayOption {
	return func(c *GatewayClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithSystemPrompt overrides the system message sent with every request.
func WithSystemPrompt(prompt string) GatewayOption {
	return func(c *GatewayClient) {
		c.systemPrompt = prompt
	}
}

// WithRetryDelay sets the base backoff delay (for testing).
func WithRetryDelay(d time.Duration) GatewayOption {
	return func(c *GatewayClient) {
		c.retryDelay = d
	}
}

// NewGatewayClient creates a client for the generation gateway.
func NewGatewayClient(baseURL, appID, appSecret, model string, opts ...GatewayOption) *GatewayClient {
	c := &GatewayClient{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:      baseURL,
		appID:        appID,
		appSecret:    appSecret,
		model:        model,
		systemPrompt: defaultSystemPrompt,
		retryDelay:   time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Ping verifies the gateway is reachable and the credentials work.
func (c *GatewayClient) Ping(ctx context.Context) error {
	_, err := c.ensureToken(ctx)
	return err
}

type loginRequest struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// ensureToken returns the cached token, logging in first if none is held.
func (c *GatewayClient) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	body, err := json.Marshal(loginRequest{ID: c.appID, Secret: c.appSecret})
	if err != nil {
		return "", fmt.Errorf("marshaling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: login rejected with status %d", ErrAuth, resp.StatusCode)
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: "login failed"}
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", fmt.Errorf("%w: decoding login response: %v", ErrInvalidResponse, err)
	}
	if login.Token == "" {
		return "", fmt.Errorf("%w: login returned no token", ErrAuth)
	}

	c.mu.Lock()
	c.token = login.Token
	c.mu.Unlock()

	return login.Token, nil
}

// invalidateToken drops the cached token if it is still the rejected one,
// so the next call logs in again.
func (c *GatewayClient) invalidateToken(rejected string) {
	c.mu.Lock()
	if c.token == rejected {
		c.token = ""
	}
	c.mu.Unlock()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	ID          string        `json:"id"`
	ModelID     string        `json:"modelId"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"maxTokens"`
	Stream      bool          `json:"stream"`
	TopP        float64       `json:"topP"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Content *string `json:"content"`
}

// Complete sends a prompt and returns the model's text response.
// Transient failures (transport errors, 429, 5xx) are retried with
// exponential backoff; a rejected token triggers one fresh login; other
// client errors fail immediately.
func (c *GatewayClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		token, err := c.ensureToken(ctx)
		if err != nil {
			if IsRetryable(err) {
				lastErr = err
				continue
			}
			return "", err
		}

		content, err := c.chat(ctx, token, prompt, maxTokens)
		if err == nil {
			return content, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			// Token expired server-side, log in again on the next attempt
			c.invalidateToken(token)
			lastErr = fmt.Errorf("%w: token rejected", ErrAuth)
			continue
		}
		if IsRetryable(err) {
			lastErr = err
			continue
		}
		return "", err
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", MaxAttempts, lastErr)
}

func (c *GatewayClient) chat(ctx context.Context, token, prompt string, maxTokens int) (string, error) {
	reqBody := chatRequest{
		ID:      c.appID,
		ModelID: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Stream:      false,
		TopP:        chatTopP,
		Temperature: chatTemperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("%w: decoding chat response: %v", ErrInvalidResponse, err)
	}
	if chat.Content == nil {
		return "", fmt.Errorf("%w: response has no content field", ErrInvalidResponse)
	}

	return *chat.Content, nil
}
