package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"duck-tables/internal/duckdbsql"
	"duck-tables/internal/querybuilder"
	"duck-tables/internal/service/table"
)

// namedExpr is a SQL expression with its output name, as written in a
// query file.
type namedExpr struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// queryFile is the YAML form of a grouped query. Dimensions and filter
// columns are columns of Dataset; segment and field expressions are SQL.
type queryFile struct {
	Dataset    string            `yaml:"dataset"`
	Dimensions []string          `yaml:"dimensions"`
	Segments   []namedExpr       `yaml:"segments"`
	Fields     []namedExpr       `yaml:"fields"`
	Filters    []table.FilterDef `yaml:"filters"`
}

func (q queryFile) options() querybuilder.QueryOptions {
	col := func(name string) querybuilder.ColumnReference {
		return querybuilder.ColumnReference{TableName: q.Dataset, ColumnName: name}
	}
	opts := querybuilder.QueryOptions{Dataset: q.Dataset}
	for _, d := range q.Dimensions {
		opts.GroupDimensions = append(opts.GroupDimensions, col(d))
	}
	for _, s := range q.Segments {
		opts.Segments = append(opts.Segments, querybuilder.Segment{Name: s.Name, Expression: rawExpr(s.Expression)})
	}
	for _, f := range q.Fields {
		opts.Fields = append(opts.Fields, querybuilder.Field{Name: f.Name, Expression: rawExpr(f.Expression)})
	}
	for _, f := range q.Filters {
		opts.Filters = append(opts.Filters, querybuilder.Filter{Column: col(f.Column), Op: f.Op, Values: f.Values})
	}
	return opts
}

func rawExpr(sql string) duckdbsql.Expr {
	if sql == "" {
		return nil
	}
	return duckdbsql.Raw(sql)
}

func newSQLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print generated DuckDB SQL without running it",
	}
	cmd.AddCommand(newSQLQueryCmd())
	cmd.AddCommand(newSQLJoinCmd())
	cmd.AddCommand(newSQLLagCmd())
	return cmd
}

func printSQL(cmd *cobra.Command, sql string) error {
	if getOutputFormat(cmd) == outputJSON {
		return printJSON(cmd.OutOrStdout(), map[string]string{"sql": sql})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), sql)
	return err
}

func newSQLQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <file|->",
		Short: "Build a grouped aggregation query from a YAML file",
		Example: `  cat <<EOF | tables sql query -
  dataset: sales
  dimensions: [region]
  fields:
    - {name: total, expression: SUM(amount)}
  EOF`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q queryFile
			if err := readYAML(args[0], cmd.InOrStdin(), &q); err != nil {
				return err
			}
			sql, err := querybuilder.BuildQuery(q.options())
			if err != nil {
				return err
			}
			return printSQL(cmd, sql)
		},
	}
}

func newSQLJoinCmd() *cobra.Command {
	var (
		spec    querybuilder.JoinSpec
		mode    string
		prefix  string
		columns []string
	)
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join two named sub-queries on shared columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec.Mode = querybuilder.JoinMode(mode)
			if len(columns) > 0 {
				spec.Pick = &querybuilder.Pick{Prefix: prefix, Columns: columns}
			}
			sql, err := querybuilder.BuildJoinQuery(spec)
			if err != nil {
				return err
			}
			return printSQL(cmd, sql)
		},
	}
	f := cmd.Flags()
	f.StringVar(&spec.Left.Name, "left-name", "current", "CTE name of the left query")
	f.StringVar(&spec.Left.Query, "left", "", "left query SQL")
	f.StringVar(&spec.Right.Name, "right-name", "previous", "CTE name of the right query")
	f.StringVar(&spec.Right.Query, "right", "", "right query SQL")
	f.StringSliceVar(&spec.Using, "using", nil, "join columns")
	f.StringVar(&mode, "mode", string(querybuilder.JoinInner), "join mode (inner, left, right, full)")
	f.StringVar(&prefix, "prefix", "prev_", "prefix for picked right-side columns")
	f.StringSliceVar(&columns, "pick", nil, "right-side columns to surface under --prefix")
	_ = cmd.MarkFlagRequired("left")
	_ = cmd.MarkFlagRequired("right")
	_ = cmd.MarkFlagRequired("using")
	return cmd
}

func newSQLLagCmd() *cobra.Command {
	var (
		offset      int
		def         string
		partitionBy []string
		orderBy     string
	)
	cmd := &cobra.Command{
		Use:   "lag <expression>",
		Short: "Print a LAG window expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var defaultValue *string
			if cmd.Flags().Changed("default") {
				defaultValue = &def
			}
			var window *querybuilder.WindowDef
			if len(partitionBy) > 0 || orderBy != "" {
				window = &querybuilder.WindowDef{PartitionBy: partitionBy, OrderBy: orderBy}
			}
			return printSQL(cmd, querybuilder.LagSQL(args[0], offset, defaultValue, window))
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 1, "rows to look back")
	cmd.Flags().StringVar(&def, "default", "", "SQL used when there is no previous row (default NULL)")
	cmd.Flags().StringSliceVar(&partitionBy, "partition-by", nil, "window partition columns")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "window order column")
	return cmd
}
