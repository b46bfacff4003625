package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyloom-cli/internal/ai"
	"github.com/KaramelBytes/tidyloom-cli/internal/analysis"
	"github.com/KaramelBytes/tidyloom-cli/internal/cleaning"
	cfgpkg "github.com/KaramelBytes/tidyloom-cli/internal/config"
	"github.com/KaramelBytes/tidyloom-cli/internal/pipeline"
	"github.com/KaramelBytes/tidyloom-cli/internal/recommend"
	"github.com/KaramelBytes/tidyloom-cli/internal/store"
	tbl "github.com/KaramelBytes/tidyloom-cli/internal/table"
	"github.com/KaramelBytes/tidyloom-cli/internal/utils"
)

// pipelineOptions are per-command overrides on top of the loaded config.
// Zero values keep the configured setting.
type pipelineOptions struct {
	Project    string
	Provider   string
	Models     []string
	Retries    int
	RetriesSet bool
	BackoffMs  int
	BaseURL    string
	OllamaHost string
	TimeoutSec int
}

func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		return &cfgpkg.Global{}
	}
	return cfg
}

// newPipeline merges flag overrides with the configuration. Flags win.
func newPipeline(o pipelineOptions) *pipeline.Pipeline {
	c := currentConfig()

	provider := strings.ToLower(strings.TrimSpace(o.Provider))
	if provider == "" {
		provider = strings.ToLower(c.Provider)
	}
	project := o.Project
	if project == "" {
		project = c.Project
	}
	models := o.Models
	if len(models) == 0 && provider == strings.ToLower(c.Provider) {
		models = c.Models
	}
	retries := c.Retries
	if o.RetriesSet {
		retries = o.Retries
	}
	backoff := c.BackoffUnit()
	if o.BackoffMs > 0 {
		backoff = time.Duration(o.BackoffMs) * time.Millisecond
	}
	rc := ai.RuntimeConfig{HTTPTimeout: c.HTTPTimeout(), BaseURL: c.BaseURL, Host: c.OllamaHost}
	if o.TimeoutSec > 0 {
		rc.HTTPTimeout = time.Duration(o.TimeoutSec) * time.Second
	}
	if o.BaseURL != "" {
		rc.BaseURL = o.BaseURL
	}
	if o.OllamaHost != "" {
		rc.Host = o.OllamaHost
	}
	if provider == ai.ProviderOllama && o.BaseURL != "" && o.OllamaHost == "" {
		rc.Host = o.BaseURL
	}

	return pipeline.New(pipeline.Options{
		Provider:    provider,
		APIKey:      c.APIKey,
		Models:      models,
		Retries:     recommend.RetryLimit(retries),
		BackoffUnit: backoff,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Project:     project,
		Intents:     analysis.DefaultIntents().WithAll(c.Intents),
		Runtime:     rc,
		Logger:      logger,
	})
}

// emit writes data to path when set, otherwise to the command's stdout.
func emit(cmd *cobra.Command, data []byte, path, what string) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s to %s\n", what, path)
	return nil
}

// renderRecommendations prints the review table shown before approval.
func renderRecommendations(w io.Writer, recs []recommend.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations returned.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Table", "Column", "Null %", "Action", "Value", "Reasoning"})
	for i, r := range recs {
		tw.AppendRow(table.Row{
			i + 1,
			r.TableName,
			r.ColumnName,
			fmt.Sprintf("%.2f", r.NullPercentage),
			r.RecommendationType,
			tbl.FormatValue(r.ReplacementValue),
			r.Reasoning,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 7, WidthMax: 60},
	})
	tw.Render()
}

// renderManifest prints where cleaned tables were written.
func renderManifest(w io.Writer, m store.Manifest) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Table", "Rows", "Location"})
	for _, e := range m {
		tw.AppendRow(table.Row{e.Table, e.Rows, e.Location})
	}
	tw.Render()
}

// readApproved loads an approved map from a JSON or YAML file, by extension.
func readApproved(path string) (*cleaning.ApprovedMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read approved map: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return cleaning.ParseApprovedMap(data, format)
}

// savedRecommendations is the subset of a recommend envelope apply reads back.
type savedRecommendations struct {
	Status          string                     `json:"status"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

// friendlyError adds a hint to configuration errors the user can fix.
func friendlyError(err error, provider string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, recommend.ErrMissingAPIKey) {
		if provider == "" {
			provider = currentConfig().Provider
		}
		if provider == "" {
			provider = ai.ProviderGemini
		}
		hint := "pass --api-key, set TIDYLOOM_API_KEY"
		if env := ai.APIKeyEnv(provider); env != "" {
			hint += " or " + env
		}
		return fmt.Errorf("%w: %s, or add api_key to ~/.tidyloom/config.yaml", err, hint)
	}
	return err
}
