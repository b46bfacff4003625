package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
// Gemini, OpenAI and OpenRouter are all reached through it.
type OpenAIClient struct {
	provider string
	baseURL  string
	apiKey   string
	client   *openai.Client
}

// NewOpenAIClient builds a client for provider. An empty baseURL selects the
// provider's default endpoint.
func NewOpenAIClient(provider, apiKey, baseURL string, httpTimeout time.Duration) *OpenAIClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL(provider)
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: httpTimeout}
	return &OpenAIClient{
		provider: provider,
		baseURL:  cfg.BaseURL,
		apiKey:   apiKey,
		client:   openai.NewClientWithConfig(cfg),
	}
}

// Provider returns the provider name the client was built for.
func (c *OpenAIClient) Provider() string { return c.provider }

// Generate performs a single chat completion call. It never retries; callers
// own the retry and fallback policy.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s api key is missing", c.provider)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	creq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]openai.ChatCompletionMessage, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	for i, m := range req.Messages {
		creq.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, c.mapError(err, resp.Header())
	}
	out := &GenerateResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		RequestID: extractRequestID(resp.Header()),
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, Choice{Message: Message{Role: ch.Message.Role, Content: ch.Message.Content}})
	}
	return out, nil
}

// mapError converts library errors into this package's typed errors.
func (c *OpenAIClient) mapError(err error, header http.Header) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var oe *openai.APIError
	if errors.As(err, &oe) {
		apiErr := &APIError{
			StatusCode: oe.HTTPStatusCode,
			Code:       codeString(oe.Code),
			Message:    oe.Message,
			RequestID:  extractRequestID(header),
		}
		if apiErr.Code == "" {
			apiErr.Code = oe.Type
		}
		return classifyAPIError(apiErr, header)
	}
	var re *openai.RequestError
	if errors.As(err, &re) {
		apiErr := &APIError{StatusCode: re.HTTPStatusCode, RequestID: extractRequestID(header)}
		fillFromBody(apiErr, re.Body)
		if apiErr.Message == "" && re.Err != nil {
			apiErr.Message = re.Err.Error()
		}
		return classifyAPIError(apiErr, header)
	}
	return &UnreachableError{Host: c.baseURL, Err: err}
}

// fillFromBody reads message/code from error bodies the library could not
// decode, including the array-wrapped form some gateways send.
func fillFromBody(apiErr *APIError, body []byte) {
	if len(body) == 0 {
		return
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		var list []map[string]any
		if err := json.Unmarshal(body, &list); err != nil || len(list) == 0 {
			apiErr.Message = strings.TrimSpace(string(body))
			return
		}
		raw = list[0]
	}
	apiErr.Raw = raw
	src := raw
	if v, ok := raw["error"].(map[string]any); ok {
		src = v
	}
	if msg, ok := src["message"].(string); ok {
		apiErr.Message = msg
	}
	if code := codeString(src["code"]); code != "" {
		apiErr.Code = code
	}
	if status, ok := src["status"].(string); ok && apiErr.Code == "" {
		apiErr.Code = status
	}
}

func codeString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%d", int(t))
	default:
		return fmt.Sprint(t)
	}
}
