package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyloom-cli/internal/utils"
)

var (
	profProject string
	profFormat  string
	profOutput  string
)

var profileCmd = &cobra.Command{
	Use:   "profile <files or globs...>",
	Short: "Profile CSV/TSV/XLSX files for missing data",
	Example: `  tidyloom profile data/orders.csv data/sessions.csv
  tidyloom profile "data/*.csv" --format json --output health.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := utils.ExpandPaths(args)
		if err != nil {
			return err
		}
		p := newPipeline(pipelineOptions{Project: profProject})
		tables, err := p.Load(cmd.Context(), paths)
		if err != nil {
			return err
		}
		rep := p.Profile(tables)

		var out []byte
		switch strings.ToLower(profFormat) {
		case "markdown", "md", "":
			out = []byte(rep.Markdown())
		case "json":
			b, err := utils.PrettyJSON(rep)
			if err != nil {
				return err
			}
			out = append(b, '\n')
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", profFormat)
		}
		return emit(cmd, out, profOutput, "health report")
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profProject, "project", "p", "", "project label for the report (default from config)")
	profileCmd.Flags().StringVar(&profFormat, "format", "markdown", "output format: markdown|json")
	profileCmd.Flags().StringVar(&profOutput, "output", "", "write the report to this path instead of stdout")
}
