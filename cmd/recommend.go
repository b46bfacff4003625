package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyloom-cli/internal/ai"
	"github.com/KaramelBytes/tidyloom-cli/internal/pipeline"
	"github.com/KaramelBytes/tidyloom-cli/internal/prompt"
	"github.com/KaramelBytes/tidyloom-cli/internal/recommend"
	"github.com/KaramelBytes/tidyloom-cli/internal/utils"
)

var (
	recAPIKey      string
	recProvider    string
	recModels      []string
	recRetries     int
	recBackoffMs   int
	recBaseURL     string
	recOllamaHost  string
	recProject     string
	recJSON        bool
	recOutput      string
	recPrintPrompt bool
	recDryRun      bool
	recTimeoutSec  int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <files or globs...>",
	Short: "Ask an LLM for a cleaning strategy per column with missing data",
	Example: `  tidyloom recommend data/*.csv
  tidyloom recommend data/orders.csv --provider openai --model gpt-4o-mini
  tidyloom recommend data/*.csv --output recs.json && tidyloom apply data/*.csv --from-recommendations recs.json
  tidyloom recommend data/*.csv --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := utils.ExpandPaths(args)
		if err != nil {
			return err
		}
		p := newPipeline(pipelineOptions{
			Project:    recProject,
			Provider:   recProvider,
			Models:     recModels,
			Retries:    recRetries,
			RetriesSet: cmd.Flags().Changed("retries"),
			BackoffMs:  recBackoffMs,
			BaseURL:    recBaseURL,
			OllamaHost: recOllamaHost,
		})

		tables, err := p.Load(cmd.Context(), paths)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if recDryRun {
			text := prompt.BuildArchitectPrompt(p.Profile(tables))
			printEstimate(cmd.ErrOrStderr(), p, text)
			fmt.Fprintln(cmd.ErrOrStderr(), "--dry-run: no API call will be made. Prompt preview below --")
			fmt.Fprintln(out, text)
			return nil
		}

		timeout := recTimeoutSec
		if timeout <= 0 {
			timeout = 180
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()

		res, err := p.Recommend(ctx, tables, recAPIKey)
		if err != nil {
			return friendlyError(err, recProvider)
		}
		if recPrintPrompt && !recJSON {
			fmt.Fprintln(out, "--print-prompt: prompt sent --")
			fmt.Fprintln(out, res.Prompt)
		}
		logger.Debug("recommend finished", zap.String("run_id", res.RunID), zap.String("status", res.Status))

		if recOutput != "" {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			if err := emit(cmd, append(b, '\n'), recOutput, "recommendations"); err != nil {
				return err
			}
		}
		if recJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		} else {
			if res.Status == pipeline.StatusError {
				fmt.Fprintf(out, "⚠ %s\n", res.Message)
			} else {
				fmt.Fprintf(out, "Run %s via %s (%s)\n", res.RunID, ai.DisplayName(res.Provider), res.Model)
				renderRecommendations(out, res.Recommendations)
			}
		}
		if res.Status == pipeline.StatusError {
			return fmt.Errorf("recommendation service failed: %s", res.Message)
		}
		return nil
	},
}

// printEstimate reports prompt size and worst-case cost for the first model.
func printEstimate(w io.Writer, p *pipeline.Pipeline, text string) {
	models := p.Models()
	if len(models) == 0 {
		return
	}
	maxTokens := currentConfig().MaxTokens
	if maxTokens <= 0 {
		maxTokens = recommend.DefaultMaxTokens
	}
	e := prompt.EstimateRequest(models[0], text, maxTokens)
	fmt.Fprintf(w, "Provider: %s, model: %s, prompt tokens≈%d, max tokens: %d\n",
		ai.DisplayName(p.Provider()), e.Model, e.PromptTokens, e.MaxTokens)
	if e.Priced {
		fmt.Fprintf(w, "Estimated max cost: ~$%.4f\n", e.CostUSD)
	}
	if !e.FitsContext {
		fmt.Fprintf(w, "⚠ Prompt + max tokens exceed %s context window; later models in the chain may still fit.\n", e.Model)
	}
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	f := recommendCmd.Flags()
	f.StringVar(&recAPIKey, "api-key", "", "API key for this call (overrides env and config)")
	f.StringVar(&recProvider, "provider", "", "provider: gemini|openai|openrouter|ollama (default from config)")
	f.StringSliceVar(&recModels, "model", nil, "candidate model, most preferred first; repeat to build a fallback chain")
	f.IntVar(&recRetries, "retries", 0, "backoff retries on quota errors once the last model is reached (overrides config)")
	f.IntVar(&recBackoffMs, "backoff-ms", 0, "backoff unit in ms; attempt n waits n units (overrides config)")
	f.StringVar(&recBaseURL, "base-url", "", "override the provider endpoint")
	f.StringVar(&recOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	f.StringVarP(&recProject, "project", "p", "", "project label for the health report")
	f.BoolVar(&recJSON, "json", false, "emit the full result envelope as JSON")
	f.StringVar(&recOutput, "output", "", "also save the result envelope as JSON to this path")
	f.BoolVar(&recPrintPrompt, "print-prompt", false, "print the prompt sent to the model")
	f.BoolVar(&recDryRun, "dry-run", false, "build and print the prompt without calling the API")
	f.IntVar(&recTimeoutSec, "timeout-sec", 180, "overall request timeout in seconds")
}
