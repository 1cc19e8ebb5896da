package cli

import (
	"github.com/spf13/cobra"

	"duck-tables/internal/mockdata"
)

func newMockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Generate demo datasets",
	}
	cmd.AddCommand(newMockGenerateCmd())
	return cmd
}

func newMockGenerateCmd() *cobra.Command {
	var (
		dir  string
		opts mockdata.Options
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the sales, orders and trades CSV files plus their manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := mockdata.Generate(dir, opts)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == outputJSON {
				return printJSON(cmd.OutOrStdout(), m)
			}
			rows := make([][]string, len(m.Datasets))
			for i, ds := range m.Datasets {
				rows[i] = []string{ds.Name, string(ds.Format), ds.Path, ds.Description}
			}
			return printTable(cmd.OutOrStdout(), []string{"name", "format", "path", "description"}, rows)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "data/mock", "output directory")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 42, "random seed; the same seed writes the same files")
	cmd.Flags().IntVar(&opts.Rows, "rows", 500, "rows per dataset")
	return cmd
}
