// Package table runs declarative table requests: it compiles them to SQL,
// executes one page against the engine and computes footers over the
// visible rows.
package table

import (
	"context"
	"fmt"
	"log/slog"

	"duck-tables/internal/aggregation"
	"duck-tables/internal/duckdbsql"
	"duck-tables/internal/engine"
	"duck-tables/internal/format"
	"duck-tables/internal/querybuilder"
)

type querier interface {
	Query(ctx context.Context, sql string) (*engine.Result, error)
	Dataset(name string) (engine.Dataset, error)
}

// Service compiles and runs table requests.
type Service struct {
	engine querier
	logger *slog.Logger
}

// NewService creates a table Service over eng.
func NewService(eng querier, logger *slog.Logger) *Service {
	return &Service{engine: eng, logger: logger}
}

// Explain compiles req without executing anything.
func (s *Service) Explain(_ context.Context, req Request) (*Plan, error) {
	c, err := req.compile()
	if err != nil {
		return nil, err
	}
	return c.plan(req)
}

// Run executes one page of req. Footers aggregate only the rows of that page.
// The dataset must be registered with the engine; anything else in FROM
// would be resolved by DuckDB as a file path.
func (s *Service) Run(ctx context.Context, req Request) (*Page, error) {
	c, err := req.compile()
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.Dataset(req.Dataset); err != nil {
		return nil, err
	}
	plan, err := c.plan(req)
	if err != nil {
		return nil, err
	}

	countRes, err := s.engine.Query(ctx, plan.CountSQL)
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	total := 0
	if len(countRes.Rows) == 1 {
		n, err := aggregation.ToDecimal(countRes.Rows[0]["total"])
		if err != nil {
			return nil, fmt.Errorf("count rows: %w", err)
		}
		total = int(n.IntPart())
	}

	res, err := s.engine.Query(ctx, plan.PageSQL)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Plan:      *plan,
		Columns:   res.Columns,
		Rows:      res.Rows,
		Display:   c.display(res),
		Page:      max(req.Page, 0),
		PageSize:  req.Limit(),
		TotalRows: total,
		PageCount: req.PageCount(total),
	}

	rows := aggregation.Rows(res.Rows)
	for _, f := range c.footers {
		v, err := f.fn(f.column, rows)
		if err != nil {
			return nil, fmt.Errorf("footer %s(%s): %w", f.kind, f.column, err)
		}
		display := ""
		if v.Valid {
			display = f.formatter(v.Decimal)
		}
		page.Footers = append(page.Footers, Footer{Column: f.column, Kind: f.kind, Value: v, Display: display})
	}

	s.logger.Debug("table page served", "dataset", req.Dataset, "page", page.Page,
		"rows", len(res.Rows), "total_rows", total)
	return page, nil
}

func (c *compiled) plan(req Request) (*Plan, error) {
	stmt, err := querybuilder.Build(c.opts)
	if err != nil {
		return nil, err
	}
	plan := &Plan{SQL: duckdbsql.Format(stmt)}

	count := &duckdbsql.SelectStmt{Body: &duckdbsql.SelectCore{
		Columns: []duckdbsql.SelectItem{{Expr: &duckdbsql.FuncCall{Name: "COUNT", Star: true}, Alias: "total"}},
		From:    &duckdbsql.FromClause{Source: &duckdbsql.DerivedTable{Select: stmt, Alias: "q"}},
	}}
	plan.CountSQL = duckdbsql.Format(count)

	paged := *stmt.Body
	paged.Limit = duckdbsql.Int(int64(req.Limit()))
	if off := req.Offset(); off > 0 {
		paged.Offset = duckdbsql.Int(int64(off))
	}
	plan.PageSQL = duckdbsql.Format(&duckdbsql.SelectStmt{Body: &paged})
	return plan, nil
}

func (c *compiled) display(res *engine.Result) []map[string]string {
	out := make([]map[string]string, len(res.Rows))
	for i, row := range res.Rows {
		cells := make(map[string]string, len(row))
		for _, col := range res.Columns {
			v := row[col.Name]
			if f, ok := c.formatters[col.Name]; ok && v != nil {
				cells[col.Name] = f(v)
			} else {
				cells[col.Name] = format.Text(v)
			}
		}
		out[i] = cells
	}
	return out
}
