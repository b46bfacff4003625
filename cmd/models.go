package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyloom-cli/internal/ai"
)

var modelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show providers and their model fallback chains",
	Example: `  tidyloom models
  tidyloom models --provider openrouter`,
	RunE: func(cmd *cobra.Command, args []string) error {
		providers := ai.Providers()
		if modelsProvider != "" {
			p := strings.ToLower(modelsProvider)
			if _, err := ai.NewRuntime(p, ai.RuntimeConfig{}); err != nil {
				return err
			}
			providers = []string{p}
		}
		active := strings.ToLower(currentConfig().Provider)
		if active == "" {
			active = ai.ProviderGemini
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Provider", "Priority", "Model", "Context", "Est. $/1K in/out", "Key env"})
		for _, p := range providers {
			chain := ai.FallbackChain(p)
			if p == active && len(currentConfig().Models) > 0 {
				chain = currentConfig().Models
			}
			name := ai.DisplayName(p)
			if p == active {
				name += " (active)"
			}
			for i, m := range chain {
				ctxTokens, price := "?", "?"
				if mi, ok := ai.LookupModel(m); ok {
					ctxTokens = fmt.Sprintf("%d", mi.ContextTokens)
					price = fmt.Sprintf("%.4f / %.4f", mi.InputPerK, mi.OutputPerK)
				}
				row := table.Row{"", i + 1, m, ctxTokens, price, ""}
				if i == 0 {
					row[0] = name
					row[5] = ai.APIKeyEnv(p)
				}
				tw.AppendRow(row)
			}
			tw.AppendSeparator()
		}
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsProvider, "provider", "", "show only this provider")
}
