// Package recommend asks an LLM runtime for per-column cleaning actions and
// turns whatever comes back into canonical recommendations.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyloom-cli/internal/ai"
	"github.com/KaramelBytes/tidyloom-cli/internal/logging"
	"github.com/KaramelBytes/tidyloom-cli/internal/prompt"
)

var (
	// ErrMissingAPIKey is returned when the provider needs a credential and none was given.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrNoModels is returned when the candidate model list is empty.
	ErrNoModels = errors.New("no candidate models configured")
)

const (
	DefaultRetries     = 2
	DefaultBackoffUnit = 2 * time.Second
	DefaultMaxTokens   = 4096
)

// RetryLimit returns a pointer suitable for Options.Retries.
func RetryLimit(n int) *int { return &n }

// Options configures a Client. Models is the fallback chain, most preferred first.
type Options struct {
	Provider string
	// Service prefixes error messages; defaults to "<Provider> API Error".
	Service string
	Models  []string
	// Retries bounds backoff retries on the last model. Nil selects
	// DefaultRetries; zero or a negative value disables them.
	Retries     *int
	BackoffUnit time.Duration
	APIKey      string
	MaxTokens   int
	Temperature float64
	Logger      *zap.Logger
}

// Client calls the runtime with model fallback and linear backoff on quota
// errors. The current model index only moves forward.
type Client struct {
	rt          ai.Runtime
	service     string
	models      []string
	retries     int
	backoff     time.Duration
	maxTokens   int
	temperature float64
	logger      *zap.Logger
	sleep       func(context.Context, time.Duration) error

	mu  sync.Mutex
	idx int
}

// NewClient validates opts and returns a client bound to rt.
func NewClient(rt ai.Runtime, opts Options) (*Client, error) {
	if rt == nil {
		return nil, errors.New("runtime is nil")
	}
	if opts.Provider == "" {
		opts.Provider = ai.ProviderGemini
	}
	if ai.RequiresAPIKey(opts.Provider) && opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(opts.Models) == 0 {
		return nil, ErrNoModels
	}
	if opts.Service == "" {
		opts.Service = ai.DisplayName(opts.Provider) + " API Error"
	}
	retries := DefaultRetries
	if opts.Retries != nil {
		retries = max(*opts.Retries, 0)
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = DefaultBackoffUnit
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	models := make([]string, len(opts.Models))
	copy(models, opts.Models)
	return &Client{
		rt:          rt,
		service:     opts.Service,
		models:      models,
		retries:     retries,
		backoff:     opts.BackoffUnit,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      logging.OrNop(opts.Logger).Named("recommend"),
		sleep:       sleepCtx,
	}, nil
}

// CurrentModel returns the model the next call will start with.
func (c *Client) CurrentModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.models[c.idx]
}

// GetRecommendations sends text to the service and returns its parsed output.
// Failures come back as a ShapeError value; no Go error is returned.
func (c *Client) GetRecommendations(ctx context.Context, text string) RawOutput {
	attempt := 0
	for {
		idx, model := c.current()
		c.logger.Debug("requesting recommendations", zap.String("model", model), zap.Int("attempt", attempt))

		resp, err := c.rt.Generate(ctx, ai.GenerateRequest{
			Model: model,
			Messages: []ai.Message{
				{Role: "system", Content: prompt.SystemMessage},
				{Role: "user", Content: text},
			},
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			JSON:        true,
		})
		if err == nil {
			out, perr := ParseRaw(resp.Text())
			if perr != nil {
				c.logger.Warn("unparseable response", zap.String("model", model), logging.Error(perr))
				return errorOutput(c.service, perr)
			}
			c.logger.Debug("received recommendations",
				zap.String("model", model),
				zap.Stringer("shape", out.Shape),
				zap.String("request_id", resp.RequestID))
			return out
		}

		if ctx.Err() != nil || !ai.IsQuotaError(err) {
			c.logger.Warn("recommendation request failed", zap.String("model", model), logging.Error(err))
			return errorOutput(c.service, err)
		}
		if next, ok := c.advance(idx); ok {
			c.logger.Warn("quota exhausted, falling back",
				zap.String("from", model), zap.String("to", next), logging.Error(err))
			continue
		}
		if attempt >= c.retries {
			c.logger.Warn("retries exhausted", zap.String("model", model), zap.Int("retries", c.retries), logging.Error(err))
			return errorOutput(c.service, err)
		}
		wait := time.Duration(attempt+1) * c.backoff
		c.logger.Info("quota exhausted on last model, backing off",
			zap.String("model", model), zap.Duration("wait", wait))
		if serr := c.sleep(ctx, wait); serr != nil {
			return errorOutput(c.service, fmt.Errorf("backoff interrupted: %w", serr))
		}
		attempt++
	}
}

func (c *Client) current() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx, c.models[c.idx]
}

// advance moves past the model at from, if a later one exists. It also
// reports true when another caller already advanced past from.
func (c *Client) advance(from int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idx > from {
		return c.models[c.idx], true
	}
	if c.idx+1 >= len(c.models) {
		return "", false
	}
	c.idx++
	return c.models[c.idx], true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
