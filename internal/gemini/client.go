package gemini

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

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 30 * time.Second
	maxAttempts    = 2
	retryBackoff   = 500 * time.Millisecond
)

var (
	// ErrMissingCredential means no API key is configured. Returned before
	// any network call is made.
	ErrMissingCredential = errors.New("gemini: API key not configured")

	// ErrUnavailable wraps transport-level failures (connection refused,
	// timeout) reaching the generation endpoint.
	ErrUnavailable = errors.New("gemini: upstream unreachable")

	// ErrEmptyResponse means the endpoint returned success but no usable text.
	ErrEmptyResponse = errors.New("gemini: upstream returned no text")
)

// UpstreamError is a non-success status from the generation endpoint. The
// upstream message is preserved for logging and must not be echoed to end
// users.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini: upstream rejected request (HTTP %d): %s", e.Status, e.Message)
}

// Client submits composed prompts to the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given model. An empty apiKey is allowed
// at construction time; Generate fails fast with ErrMissingCredential.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Ready reports whether the client has a credential, without any network call.
func (c *Client) Ready() error {
	if c.apiKey == "" {
		return ErrMissingCredential
	}
	return nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate submits one prompt and returns the generated text. Transport
// failures are retried once with backoff; upstream rejections are not
// retried. Cancellation of ctx aborts the outbound call.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.Ready(); err != nil {
		return "", err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxAttempts {
		text, err := c.doGenerate(ctx, body)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return "", err
		}

		lastErr = err
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(retryBackoff):
			}
		}
	}
	return "", lastErr
}

func (c *Client) doGenerate(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		msg := upstreamMessage(respBody)
		return "", &UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	text := extractText(gr)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// upstreamMessage pulls the error message out of a Gemini error body, falling
// back to the raw body when it isn't the expected JSON shape.
func upstreamMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return er.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func extractText(gr generateResponse) string {
	if len(gr.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}
