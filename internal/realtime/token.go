// Package realtime supports the realtime agent page: it mints short-lived
// OpenAI client secrets and executes the agent's todo tool calls.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOpenAIURL is the production OpenAI API root.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// ErrNotConfigured is returned when no OpenAI API key is set.
var ErrNotConfigured = errors.New("OPENAI_API_KEY not set")

// ErrMalformedResponse is returned when the mint response carries no token.
var ErrMalformedResponse = errors.New("Malformed response from OpenAI")

// UpstreamError carries a non-2xx OpenAI response.
type UpstreamError struct {
	Status int
	Detail json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("openai: HTTP %d: %s", e.Status, string(e.Detail))
}

// TokenMinter creates ephemeral client secrets for browser realtime sessions.
type TokenMinter struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewTokenMinter creates a TokenMinter.
func NewTokenMinter(baseURL, apiKey, model string, timeout time.Duration) *TokenMinter {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	return &TokenMinter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sessionRequest struct {
	Session struct {
		Type  string `json:"type"`
		Model string `json:"model"`
	} `json:"session"`
}

// Mint requests a new client secret.
//
// Postcondition: Returns a non-empty token, ErrNotConfigured,
// ErrMalformedResponse, or an *UpstreamError.
func (m *TokenMinter) Mint(ctx context.Context) (string, error) {
	if m.apiKey == "" {
		return "", ErrNotConfigured
	}

	var body sessionRequest
	body.Session.Type = "realtime"
	body.Session.Model = m.model
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/realtime/client_secrets", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "realtime=v1")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Status: resp.StatusCode, Detail: detailJSON(raw)}
	}

	return extractToken(raw)
}

// extractToken accepts the response shapes OpenAI has used for client
// secrets, first match wins.
func extractToken(raw []byte) (string, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	candidates := []func() (string, bool){
		func() (string, bool) { return nestedString(data, "client_secret", "value") },
		func() (string, bool) { return nestedString(data, "clientSecret", "value") },
		func() (string, bool) { return plainString(data, "value") },
		func() (string, bool) { return plainString(data, "secret") },
		func() (string, bool) { return plainString(data, "client_secret") },
	}
	for _, c := range candidates {
		if v, ok := c(); ok && v != "" {
			return v, nil
		}
	}
	return "", ErrMalformedResponse
}

func plainString(data map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := data[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func nestedString(data map[string]json.RawMessage, outer, inner string) (string, bool) {
	raw, ok := data[outer]
	if !ok {
		return "", false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	return plainString(obj, inner)
}

// detailJSON returns raw if it is valid JSON, otherwise raw quoted as a JSON string.
func detailJSON(raw []byte) json.RawMessage {
	if json.Valid(raw) {
		return raw
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
