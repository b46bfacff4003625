package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyloom-cli/internal/cleaning"
	"github.com/KaramelBytes/tidyloom-cli/internal/pipeline"
	"github.com/KaramelBytes/tidyloom-cli/internal/store"
	"github.com/KaramelBytes/tidyloom-cli/internal/utils"
)

var (
	applyApproved string
	applyFromRecs string
	applyOutDir   string
	applySQLite   string
	applyJSON     bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <files or globs...>",
	Short: "Apply approved cleaning actions and write cleaned copies",
	Example: `  tidyloom apply data/*.csv --approved approved.yaml
  tidyloom apply data/*.csv --from-recommendations recs.json --out-dir ./cleaned_data
  tidyloom apply data/*.csv --approved approved.json --sqlite cleaned.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (applyApproved == "") == (applyFromRecs == "") {
			return errors.New("exactly one of --approved or --from-recommendations is required")
		}
		// Reject a malformed approved map before touching any data.
		approved, err := loadApproval()
		if err != nil {
			return &pipeline.StageError{Stage: pipeline.StageApprove, Err: err}
		}

		paths, err := utils.ExpandPaths(args)
		if err != nil {
			return err
		}
		p := newPipeline(pipelineOptions{})
		tables, err := p.Load(cmd.Context(), paths)
		if err != nil {
			return err
		}

		var sink store.Sink
		if applySQLite != "" {
			sink = store.NewSQLiteSink(applySQLite, logger)
		} else {
			dir := applyOutDir
			if dir == "" {
				dir = currentConfig().OutputDir
			}
			sink = store.NewCSVSink(dir, logger)
		}

		res, err := p.Clean(cmd.Context(), tables, approved, sink)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if applyJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "✓ Cleaned %d table(s) (run %s)\n", len(res.Manifest), res.RunID)
		renderManifest(out, res.Manifest)
		return nil
	},
}

func loadApproval() (*cleaning.ApprovedMap, error) {
	if applyApproved != "" {
		return readApproved(applyApproved)
	}
	data, err := os.ReadFile(applyFromRecs)
	if err != nil {
		return nil, fmt.Errorf("read recommendations: %w", err)
	}
	var saved savedRecommendations
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("invalid recommendations file: %w", err)
	}
	if saved.Status == pipeline.StatusError {
		return nil, errors.New("recommendations file records a failed run")
	}
	return cleaning.ApprovedFromRecommendations(saved.Recommendations), nil
}

func init() {
	rootCmd.AddCommand(applyCmd)
	f := applyCmd.Flags()
	f.StringVar(&applyApproved, "approved", "", "approved map (JSON or YAML): table -> column -> {action, replacement_value}")
	f.StringVar(&applyFromRecs, "from-recommendations", "", "approve every entry of a saved 'recommend --output' file")
	f.StringVar(&applyOutDir, "out-dir", "", "directory for <table>_cleaned.csv files (default from config, ./cleaned_data)")
	f.StringVar(&applySQLite, "sqlite", "", "write <table>_cleaned tables into this SQLite file instead of CSV")
	f.BoolVar(&applyJSON, "json", false, "emit the result envelope as JSON")
}
