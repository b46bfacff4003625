// Package pipeline wires ingestion, profiling, recommendation, cleaning and
// persistence into request-scoped runs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyloom-cli/internal/ai"
	"github.com/KaramelBytes/tidyloom-cli/internal/analysis"
	"github.com/KaramelBytes/tidyloom-cli/internal/cleaning"
	"github.com/KaramelBytes/tidyloom-cli/internal/logging"
	"github.com/KaramelBytes/tidyloom-cli/internal/parser"
	"github.com/KaramelBytes/tidyloom-cli/internal/prompt"
	"github.com/KaramelBytes/tidyloom-cli/internal/recommend"
	"github.com/KaramelBytes/tidyloom-cli/internal/store"
	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

// Stage names used in StageError.
const (
	StageIngest    = "ingest"
	StageRecommend = "recommend"
	StageApprove   = "approve"
	StagePersist   = "persist"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// StageError names the pipeline stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// RuntimeFactory builds the runtime for one request.
type RuntimeFactory func(provider string, cfg ai.RuntimeConfig) (ai.Runtime, error)

// Options configures a Pipeline. APIKey is the process-wide default; a
// per-call key passed to Recommend takes precedence.
type Options struct {
	Provider    string
	APIKey      string
	Models      []string
	Retries     *int // nil selects recommend.DefaultRetries
	BackoffUnit time.Duration
	MaxTokens   int
	Temperature float64
	Project     string
	Intents     analysis.IntentDictionary
	Runtime     ai.RuntimeConfig
	NewRuntime  RuntimeFactory
	Logger      *zap.Logger
}

// Pipeline holds only immutable configuration; every call builds its own
// recommendation client, so concurrent calls share no mutable state.
type Pipeline struct {
	opts     Options
	profiler *analysis.Profiler
	executor *cleaning.Executor
	logger   *zap.Logger
}

// New returns a pipeline. Empty Provider selects gemini; empty Models selects
// the provider's fallback chain.
func New(opts Options) *Pipeline {
	if opts.Provider == "" {
		opts.Provider = ai.ProviderGemini
	}
	if len(opts.Models) == 0 {
		opts.Models = ai.FallbackChain(opts.Provider)
	}
	if opts.NewRuntime == nil {
		opts.NewRuntime = ai.NewRuntime
	}
	logger := logging.OrNop(opts.Logger)
	return &Pipeline{
		opts:     opts,
		profiler: analysis.NewProfiler(opts.Project, opts.Intents),
		executor: cleaning.NewExecutor(logger),
		logger:   logger.Named("pipeline"),
	}
}

// RecommendResult is the envelope returned by Recommend. Service failures
// set Status to "error" and carry the message; the report is still present.
type RecommendResult struct {
	Status          string                     `json:"status"`
	RunID           string                     `json:"run_id"`
	Provider        string                     `json:"provider"`
	Model           string                     `json:"model,omitempty"`
	Message         string                     `json:"message,omitempty"`
	Report          *analysis.HealthReport     `json:"report"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Prompt          string                     `json:"-"`
}

// CleanResult is the envelope returned by Clean.
type CleanResult struct {
	Status   string                  `json:"status"`
	RunID    string                  `json:"run_id"`
	Manifest store.Manifest          `json:"manifest"`
	Tables   map[string]*table.Table `json:"-"`
}

// Provider returns the configured provider name.
func (p *Pipeline) Provider() string { return p.opts.Provider }

// Models returns a copy of the candidate chain, most preferred first.
func (p *Pipeline) Models() []string {
	return append([]string(nil), p.opts.Models...)
}

// Load reads and parses input files concurrently.
func (p *Pipeline) Load(ctx context.Context, paths []string) (map[string]*table.Table, error) {
	tables, err := parser.LoadTables(ctx, paths)
	if err != nil {
		return nil, &StageError{Stage: StageIngest, Err: err}
	}
	return tables, nil
}

// Profile builds the health report for tables.
func (p *Pipeline) Profile(tables map[string]*table.Table) *analysis.HealthReport {
	return p.profiler.Profile(tables)
}

// Recommend profiles tables, asks the service for recommendations and
// normalizes them. apiKey overrides the configured key when non-empty.
// Configuration problems are returned as errors before any network call.
func (p *Pipeline) Recommend(ctx context.Context, tables map[string]*table.Table, apiKey string) (*RecommendResult, error) {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	if apiKey == "" {
		apiKey = p.opts.APIKey
	}
	rcfg := p.opts.Runtime
	rcfg.APIKey = apiKey
	rt, err := p.opts.NewRuntime(p.opts.Provider, rcfg)
	if err != nil {
		return nil, &StageError{Stage: StageRecommend, Err: err}
	}
	client, err := recommend.NewClient(rt, recommend.Options{
		Provider:    p.opts.Provider,
		Models:      p.opts.Models,
		Retries:     p.opts.Retries,
		BackoffUnit: p.opts.BackoffUnit,
		APIKey:      apiKey,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
		Logger:      logger,
	})
	if err != nil {
		return nil, &StageError{Stage: StageRecommend, Err: err}
	}

	report := p.profiler.Profile(tables)
	text := prompt.BuildArchitectPrompt(report)
	logger.Debug("built prompt", zap.Int("tables", len(report.Details)), zap.Int("chars", len(text)))

	raw := client.GetRecommendations(ctx, text)
	res := &RecommendResult{
		Status:          StatusSuccess,
		RunID:           runID,
		Provider:        p.opts.Provider,
		Model:           client.CurrentModel(),
		Report:          report,
		Recommendations: recommend.Normalize(raw, report),
		Prompt:          text,
	}
	if raw.IsError() {
		res.Status = StatusError
		res.Message = raw.Error.Message
		logger.Warn("recommendation service failed", zap.String("message", logging.Redact(res.Message)))
	} else {
		logger.Info("recommendations ready", zap.Int("count", len(res.Recommendations)), zap.String("model", res.Model))
	}
	return res, nil
}

// Clean applies approved to copies of tables and, when sink is non-nil,
// persists the result.
func (p *Pipeline) Clean(ctx context.Context, tables map[string]*table.Table, approved *cleaning.ApprovedMap, sink store.Sink) (*CleanResult, error) {
	if approved == nil {
		return nil, &StageError{Stage: StageApprove, Err: fmt.Errorf("approved map is required")}
	}
	runID := uuid.NewString()
	cleaned := p.executor.Apply(tables, approved)
	res := &CleanResult{Status: StatusSuccess, RunID: runID, Manifest: store.Manifest{}, Tables: cleaned}
	if sink == nil {
		return res, nil
	}
	m, err := sink.Write(ctx, cleaned)
	if err != nil {
		return nil, &StageError{Stage: StagePersist, Err: err}
	}
	res.Manifest = m
	p.logger.Info("cleaned tables written", zap.String("run_id", runID), zap.Int("tables", len(m)))
	return res, nil
}
