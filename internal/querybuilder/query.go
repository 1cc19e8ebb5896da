package querybuilder

import (
	"strings"

	"github.com/samber/lo"

	"duck-tables/internal/domain"
	"duck-tables/internal/duckdbsql"
)

// Build assembles the grouped SELECT for opts:
//
//	SELECT <dim AS column>, <segment AS name>, <field AS name>
//	FROM "<dataset>" [WHERE <filters>]
//	GROUP BY <dims>, <segments>
//	ORDER BY <dims>, <segments>
//
// GROUP BY and ORDER BY carry the same expressions in SELECT order and are
// left out when there are no dimensions or segments.
func Build(opts QueryOptions) (*duckdbsql.SelectStmt, error) {
	if strings.TrimSpace(opts.Dataset) == "" {
		return nil, domain.ErrValidation("dataset is required")
	}
	if len(opts.GroupDimensions)+len(opts.Segments)+len(opts.Fields) == 0 {
		return nil, domain.ErrValidation("query on %q selects no columns", opts.Dataset)
	}
	if err := checkOutputNames(opts); err != nil {
		return nil, err
	}

	n := len(opts.GroupDimensions) + len(opts.Segments)
	columns := make([]duckdbsql.SelectItem, 0, n+len(opts.Fields))
	groupBy := make([]duckdbsql.Expr, 0, n)

	for _, dim := range opts.GroupDimensions {
		if dim.TableName == "" || dim.ColumnName == "" {
			return nil, domain.ErrValidation("dimension needs both table and column name, got %q.%q", dim.TableName, dim.ColumnName)
		}
		columns = append(columns, duckdbsql.SelectItem{Expr: dim.Expr(), Alias: dim.ColumnName})
		groupBy = append(groupBy, dim.Expr())
	}
	for _, seg := range opts.Segments {
		if seg.Expression == nil {
			return nil, domain.ErrValidation("segment %q has no expression", seg.Name)
		}
		columns = append(columns, duckdbsql.SelectItem{Expr: seg.Expression, Alias: seg.Name})
		groupBy = append(groupBy, seg.Expression)
	}
	for _, field := range opts.Fields {
		if field.Expression == nil {
			return nil, domain.ErrValidation("field %q has no expression", field.Name)
		}
		columns = append(columns, duckdbsql.SelectItem{Expr: field.Expression, Alias: field.Name})
	}

	where, err := whereClause(opts.Filters)
	if err != nil {
		return nil, err
	}

	return &duckdbsql.SelectStmt{Body: &duckdbsql.SelectCore{
		Columns: columns,
		From:    &duckdbsql.FromClause{Source: &duckdbsql.TableName{Name: opts.Dataset}},
		Where:   where,
		GroupBy: groupBy,
		OrderBy: lo.Map(groupBy, func(e duckdbsql.Expr, _ int) duckdbsql.OrderByItem {
			return duckdbsql.OrderByItem{Expr: e}
		}),
	}}, nil
}

// BuildQuery renders Build(opts) as SQL text.
func BuildQuery(opts QueryOptions) (string, error) {
	stmt, err := Build(opts)
	if err != nil {
		return "", err
	}
	return duckdbsql.Format(stmt), nil
}

// checkOutputNames enforces one output column per name across dimensions,
// segments and fields.
func checkOutputNames(opts QueryOptions) error {
	names := make([]string, 0, len(opts.GroupDimensions)+len(opts.Segments)+len(opts.Fields))
	for _, d := range opts.GroupDimensions {
		names = append(names, d.ColumnName)
	}
	for _, s := range opts.Segments {
		names = append(names, s.Name)
	}
	for _, f := range opts.Fields {
		names = append(names, f.Name)
	}
	if lo.Contains(names, "") {
		return domain.ErrValidation("every output column needs a name")
	}
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return domain.ErrValidation("duplicate output column names: %s", strings.Join(dups, ", "))
	}
	return nil
}
