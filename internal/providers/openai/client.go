package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"descriptly/internal/domain"
)

const (
	serviceName    = "openai"
	defaultTimeout = 30 * time.Second
	defaultBaseURL = "https://api.openai.com/v1"
)

// Options configures the generation client.
type Options struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
}

// Client issues chat-completion calls and parses the responses into
// structured descriptions.
type Client struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient validates options and builds a client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        NormalizeModel(opts.Model),
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

// Generate issues exactly one completion call for the request and extracts a
// structured description from the response text. Fields beyond Content are
// best effort and may be absent.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedDescription, error) {
	model := c.model
	if req.Options.Model != "" {
		model = NormalizeModel(req.Options.Model)
	}
	payload := chatRequest{
		Model:       model,
		Temperature: 0.7,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req)},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return nil, classifyStatusError(resp.StatusCode, resp.Body)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NewExternalServiceError(serviceName, domain.CauseMalformedResponse, "undecodable completion body", err)
	}
	if len(out.Choices) == 0 {
		return nil, domain.NewExternalServiceError(serviceName, domain.CauseMalformedResponse, "no choices in completion", nil)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return nil, domain.NewExternalServiceError(serviceName, domain.CauseMalformedResponse, "empty completion content", nil)
	}
	return Extract(text), nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewExternalServiceError(serviceName, domain.CauseTimeout, "request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewExternalServiceError(serviceName, domain.CauseTimeout, "request timed out", err)
	}
	return domain.NewExternalServiceError(serviceName, domain.CauseUnavailable, "request failed", err)
}

func classifyStatusError(status int, body io.Reader) error {
	var detail apiError
	_ = json.NewDecoder(body).Decode(&detail)
	msg := detail.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	switch {
	case status == http.StatusTooManyRequests && detail.Error.Type == "insufficient_quota":
		return domain.NewExternalServiceError(serviceName, domain.CauseQuotaExceeded, msg, nil)
	case status == http.StatusTooManyRequests:
		return domain.NewExternalServiceError(serviceName, domain.CauseRateLimited, msg, nil)
	default:
		return domain.NewExternalServiceError(serviceName, domain.CauseUnavailable, msg, nil)
	}
}
