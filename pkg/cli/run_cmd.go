package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"duck-tables/internal/dataset"
	"duck-tables/internal/engine"
	"duck-tables/internal/mockdata"
	"duck-tables/internal/service/table"
)

func newRunCmd(s *settings) *cobra.Command {
	var (
		page     int
		pageSize int
		explain  bool
	)
	cmd := &cobra.Command{
		Use:   "run <request.yaml|->",
		Short: "Run a table request against local datasets",
		Long: "Run a table request against the datasets of --manifest in an in-memory DuckDB. " +
			"Without a manifest, mock data is generated first.",
		Example: `  cat <<EOF | tables run -
  dataset: sales
  dimensions: [region]
  measures:
    - {name: revenue, column: amount, aggregation: sum, footer: sum, format: {type: currency}}
  EOF`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req table.Request
			if err := readYAML(args[0], cmd.InOrStdin(), &req); err != nil {
				return err
			}
			if cmd.Flags().Changed("page") {
				req.Page = page
			}
			if cmd.Flags().Changed("page-size") {
				req.PageSize = pageSize
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			logger := s.logger(cmd)
			svc := func(eng *engine.Engine) *table.Service {
				return table.NewService(eng, logger.With("component", "tables"))
			}

			if explain {
				plan, err := svc(nil).Explain(ctx, req)
				if err != nil {
					return err
				}
				if getOutputFormat(cmd) == outputJSON {
					return printJSON(cmd.OutOrStdout(), plan)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n\n%s\n", plan.SQL, plan.CountSQL, plan.PageSQL)
				return err
			}

			m, cleanup, err := s.datasets()
			if err != nil {
				return err
			}
			defer cleanup()

			return engine.WithEngine(ctx, engine.Options{}, logger.With("component", "engine"), func(eng *engine.Engine) error {
				if err := dataset.RegisterAll(ctx, eng, m.Datasets, logger); err != nil {
					return err
				}
				out, err := svc(eng).Run(ctx, req)
				if err != nil {
					return err
				}
				return printPage(cmd, out)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page (default 50)")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the generated SQL instead of running it")
	return cmd
}

// datasets loads the configured manifest, or generates mock data into the
// configured (or a temporary) directory. cleanup removes a temporary one.
func (s *settings) datasets() (*dataset.Manifest, func(), error) {
	if s.manifest != "" {
		m, err := dataset.Load(s.manifest)
		return m, func() {}, err
	}

	dir, cleanup := s.mockDir, func() {}
	if dir == "" {
		tmp, err := os.MkdirTemp("", "tables-mock-")
		if err != nil {
			return nil, nil, fmt.Errorf("create mock data dir: %w", err)
		}
		dir, cleanup = tmp, func() { _ = os.RemoveAll(tmp) }
	}
	m, err := mockdata.Generate(dir, mockdata.Options{Seed: 42})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return m, cleanup, nil
}

// printPage renders a table page with a footer row and a page summary.
func printPage(cmd *cobra.Command, p *table.Page) error {
	if getOutputFormat(cmd) == outputJSON {
		return printJSON(cmd.OutOrStdout(), p)
	}

	headers := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		headers[i] = c.Name
	}
	rows := make([][]string, 0, len(p.Display)+1)
	for _, cells := range p.Display {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = cells[h]
		}
		rows = append(rows, row)
	}
	if len(p.Footers) > 0 {
		footer := make([]string, len(headers))
		for _, f := range p.Footers {
			for i, h := range headers {
				if h == f.Column {
					footer[i] = f.Display
				}
			}
		}
		if len(footer) > 0 && footer[0] == "" {
			footer[0] = "total"
		}
		rows = append(rows, footer)
	}
	if err := printTable(cmd.OutOrStdout(), headers, rows); err != nil {
		return err
	}
	printNote(cmd.OutOrStdout(), "page %d of %d, %d rows", p.Page+1, max(p.PageCount, 1), p.TotalRows)
	return nil
}
