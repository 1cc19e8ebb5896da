package cli

import (
	"github.com/spf13/cobra"

	"duck-tables/internal/format"
)

type formattedValue struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

func newFormatCmd() *cobra.Command {
	var (
		cfg      format.Config
		decimals int32
	)
	cmd := &cobra.Command{
		Use:   "format <value>...",
		Short: "Format numbers, percentages and timestamps for display",
		Example: `  tables format 1234567 0.5 -- -42
  tables format --type percentage --decimals 1 12.345
  tables format --type time --layout 2006-01 2024-03-05`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("decimals") {
				cfg.Decimals = &decimals
			}
			spec, err := cfg.Spec()
			if err != nil {
				return err
			}
			f := format.New(spec)

			out := make([]formattedValue, len(args))
			rows := make([][]string, len(args))
			for i, v := range args {
				out[i] = formattedValue{Value: v, Display: f(v)}
				rows[i] = []string{v, out[i].Display}
			}
			if getOutputFormat(cmd) == outputJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printTable(cmd.OutOrStdout(), []string{"value", "display"}, rows)
		},
	}
	cmd.Flags().StringVar(&cfg.Type, "type", "number", "number, currency, percentage or time")
	cmd.Flags().Int32Var(&decimals, "decimals", 2, "fraction digits for percentages")
	cmd.Flags().StringVar(&cfg.Layout, "layout", "", "Go time layout for --type time")
	cmd.Flags().StringVar(&cfg.Timezone, "timezone", "", "IANA zone for --type time (default UTC)")
	return cmd
}
