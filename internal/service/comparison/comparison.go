// Package comparison compares a measure across two periods and across
// consecutive periods of a trend.
package comparison

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"duck-tables/internal/aggregation"
	"duck-tables/internal/domain"
	"duck-tables/internal/duckdbsql"
	"duck-tables/internal/engine"
	"duck-tables/internal/format"
	"duck-tables/internal/querybuilder"
)

// PreviousPrefix names the previous-period column of a comparison.
const PreviousPrefix = "prev_"

const (
	currentName  = "current"
	previousName = "previous"
	trendName    = "trend"
	periodColumn = "period"
)

var truncations = []string{"day", "week", "month", "quarter", "year"}

type querier interface {
	Query(ctx context.Context, sql string) (*engine.Result, error)
	Dataset(name string) (engine.Dataset, error)
}

// Period is an inclusive date range, both ends formatted as YYYY-MM-DD.
type Period struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// filters restricts date to the period as from <= date < to+1 day, so rows
// late on the last day of a TIMESTAMP column are kept.
func (p Period) filters(which string, date querybuilder.ColumnReference) ([]querybuilder.Filter, error) {
	from, err := time.Parse(time.DateOnly, p.From)
	if err != nil {
		return nil, domain.ErrValidation("%s period: invalid from date %q", which, p.From)
	}
	to, err := time.Parse(time.DateOnly, p.To)
	if err != nil {
		return nil, domain.ErrValidation("%s period: invalid to date %q", which, p.To)
	}
	if to.Before(from) {
		return nil, domain.ErrValidation("%s period ends before it starts", which)
	}
	return []querybuilder.Filter{
		{Column: date, Op: querybuilder.FilterGte, Values: []any{from.Format(time.DateOnly)}},
		{Column: date, Op: querybuilder.FilterLt, Values: []any{to.AddDate(0, 0, 1).Format(time.DateOnly)}},
	}, nil
}

// Measure is the single aggregated column being compared.
type Measure struct {
	Name        string                     `json:"name,omitempty" yaml:"name,omitempty"`
	Column      string                     `json:"column" yaml:"column"`
	Aggregation querybuilder.AggregateFunc `json:"aggregation" yaml:"aggregation"`
	Format      format.Config              `json:"format,omitempty" yaml:"format,omitempty"`
}

func (m Measure) outputName() string {
	if m.Name != "" {
		return m.Name
	}
	return strings.ToLower(string(m.Aggregation)) + "_" + m.Column
}

func (m Measure) field(dataset string) (querybuilder.Field, error) {
	fn, err := querybuilder.ParseAggregateFunc(string(m.Aggregation))
	if err != nil {
		return querybuilder.Field{}, err
	}
	if strings.TrimSpace(m.Column) == "" || m.Column == "*" {
		return querybuilder.Field{}, domain.ErrValidation("measure needs a column")
	}
	col := querybuilder.ColumnReference{TableName: dataset, ColumnName: m.Column}
	return querybuilder.Field{Name: m.outputName(), Expression: querybuilder.Aggregate(fn, col)}, nil
}

// Request compares Measure between Current and Previous per combination of
// Dimensions.
type Request struct {
	Dataset    string                `json:"dataset" yaml:"dataset"`
	Dimensions []string              `json:"dimensions" yaml:"dimensions"`
	Measure    Measure               `json:"measure" yaml:"measure"`
	DateColumn string                `json:"date_column" yaml:"date_column"`
	Current    Period                `json:"current" yaml:"current"`
	Previous   Period                `json:"previous" yaml:"previous"`
	Mode       querybuilder.JoinMode `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// TrendRequest puts each period of Measure next to the one before it.
type TrendRequest struct {
	Dataset    string   `json:"dataset" yaml:"dataset"`
	Dimensions []string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Measure    Measure  `json:"measure" yaml:"measure"`
	DateColumn string   `json:"date_column" yaml:"date_column"`
	Truncate   string   `json:"truncate" yaml:"truncate"`
}

// Row is one compared group. Delta and ChangePct are null when either side
// is missing; ChangePct is also null when the previous value is zero.
type Row struct {
	Dimensions map[string]any      `json:"dimensions"`
	Period     any                 `json:"period,omitempty"`
	Current    decimal.NullDecimal `json:"current"`
	Previous   decimal.NullDecimal `json:"previous"`
	Delta      decimal.NullDecimal `json:"delta"`
	ChangePct  decimal.NullDecimal `json:"change_pct"`
	Display    map[string]string   `json:"display"`
}

// Result holds the executed SQL and the compared rows.
type Result struct {
	SQL    string `json:"sql"`
	Rows   []Row  `json:"rows"`
	Totals *Row   `json:"totals,omitempty"`
}

// Service runs comparisons against the engine.
type Service struct {
	engine querier
	logger *slog.Logger
}

// NewService creates a comparison Service.
func NewService(eng querier, logger *slog.Logger) *Service {
	return &Service{engine: eng, logger: logger}
}

// CompareSQL builds the two-period join for req.
func CompareSQL(req Request) (string, error) {
	if strings.TrimSpace(req.Dataset) == "" {
		return "", domain.ErrValidation("dataset is required")
	}
	if len(req.Dimensions) == 0 {
		return "", domain.ErrValidation("comparison needs at least one dimension to join on")
	}
	if strings.TrimSpace(req.DateColumn) == "" {
		return "", domain.ErrValidation("date_column is required")
	}
	date := querybuilder.ColumnReference{TableName: req.Dataset, ColumnName: req.DateColumn}
	curFilters, err := req.Current.filters(currentName, date)
	if err != nil {
		return "", err
	}
	prevFilters, err := req.Previous.filters(previousName, date)
	if err != nil {
		return "", err
	}
	mode := req.Mode
	if mode == "" {
		mode = querybuilder.JoinLeft
	}
	field, err := req.Measure.field(req.Dataset)
	if err != nil {
		return "", err
	}

	dims := lo.Map(req.Dimensions, func(d string, _ int) querybuilder.ColumnReference {
		return querybuilder.ColumnReference{TableName: req.Dataset, ColumnName: d}
	})
	side := func(filters []querybuilder.Filter) (string, error) {
		return querybuilder.BuildQuery(querybuilder.QueryOptions{
			Dataset:         req.Dataset,
			GroupDimensions: dims,
			Fields:          []querybuilder.Field{field},
			Filters:         filters,
		})
	}
	cur, err := side(curFilters)
	if err != nil {
		return "", err
	}
	prev, err := side(prevFilters)
	if err != nil {
		return "", err
	}

	stmt, err := querybuilder.BuildJoin(querybuilder.JoinSpec{
		Left:  querybuilder.NamedQuery{Name: currentName, Query: cur},
		Right: querybuilder.NamedQuery{Name: previousName, Query: prev},
		Using: req.Dimensions,
		Mode:  mode,
	})
	if err != nil {
		return "", err
	}
	// A group present on one side only has NULL keys on the other, so the
	// keys are coalesced across both sides for right and full joins.
	cols := make([]duckdbsql.SelectItem, 0, len(req.Dimensions)+2)
	for _, d := range req.Dimensions {
		cols = append(cols, duckdbsql.SelectItem{
			Expr:  duckdbsql.Func("COALESCE", duckdbsql.Col(currentName, d), duckdbsql.Col(previousName, d)),
			Alias: d,
		})
	}
	cols = append(cols,
		duckdbsql.SelectItem{Expr: duckdbsql.Col(currentName, field.Name), Alias: field.Name},
		duckdbsql.SelectItem{Expr: duckdbsql.Col(previousName, field.Name), Alias: PreviousPrefix + field.Name},
	)
	stmt.Body.Columns = cols
	stmt.Body.OrderBy = orderBy(req.Dimensions...)
	return duckdbsql.Format(stmt), nil
}

// TrendSQL builds the lagged period series for req.
func TrendSQL(req TrendRequest) (string, error) {
	if strings.TrimSpace(req.Dataset) == "" {
		return "", domain.ErrValidation("dataset is required")
	}
	if strings.TrimSpace(req.DateColumn) == "" {
		return "", domain.ErrValidation("date_column is required")
	}
	if !lo.Contains(truncations, strings.ToLower(req.Truncate)) {
		return "", domain.ErrValidation("unknown truncation %q", req.Truncate)
	}
	field, err := req.Measure.field(req.Dataset)
	if err != nil {
		return "", err
	}

	inner, err := querybuilder.Build(querybuilder.QueryOptions{
		Dataset: req.Dataset,
		GroupDimensions: lo.Map(req.Dimensions, func(d string, _ int) querybuilder.ColumnReference {
			return querybuilder.ColumnReference{TableName: req.Dataset, ColumnName: d}
		}),
		Segments: []querybuilder.Segment{{
			Name:       periodColumn,
			Expression: querybuilder.DateTrunc(req.Truncate, querybuilder.ColumnReference{TableName: req.Dataset, ColumnName: req.DateColumn}),
		}},
		Fields: []querybuilder.Field{field},
	})
	if err != nil {
		return "", err
	}

	lag := querybuilder.Lag(duckdbsql.Col("", field.Name), 1, nil, &querybuilder.WindowDef{
		PartitionBy: req.Dimensions,
		OrderBy:     periodColumn,
	})
	stmt := &duckdbsql.SelectStmt{
		With: &duckdbsql.WithClause{CTEs: []*duckdbsql.CTE{{Name: trendName, Select: inner}}},
		Body: &duckdbsql.SelectCore{
			Columns: []duckdbsql.SelectItem{{Star: true}, {Expr: lag, Alias: "previous_" + field.Name}},
			From:    &duckdbsql.FromClause{Source: &duckdbsql.TableName{Name: trendName}},
			OrderBy: orderBy(append(slices.Clone(req.Dimensions), periodColumn)...),
		},
	}
	return duckdbsql.Format(stmt), nil
}

func orderBy(cols ...string) []duckdbsql.OrderByItem {
	return lo.Map(cols, func(c string, _ int) duckdbsql.OrderByItem {
		return duckdbsql.OrderByItem{Expr: duckdbsql.Col("", c)}
	})
}

// Compare runs req and computes the change of every group plus the totals.
func (s *Service) Compare(ctx context.Context, req Request) (*Result, error) {
	sql, err := CompareSQL(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.Dataset(req.Dataset); err != nil {
		return nil, err
	}
	spec, err := req.Measure.Format.Spec()
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Query(ctx, sql)
	if err != nil {
		return nil, err
	}

	name := req.Measure.outputName()
	r := &comparer{formatter: format.New(spec)}
	out := &Result{SQL: sql, Rows: make([]Row, 0, len(res.Rows))}
	for _, raw := range res.Rows {
		row, err := r.row(raw, req.Dimensions, name, PreviousPrefix+name)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, row)
	}

	rows := aggregation.Rows(res.Rows)
	cur, err := aggregation.Sum(name, rows)
	if err != nil {
		return nil, err
	}
	prev, err := aggregation.Sum(PreviousPrefix+name, rows)
	if err != nil {
		return nil, err
	}
	totals := r.build(nil, cur, prev)
	out.Totals = &totals

	s.logger.Debug("comparison served", "dataset", req.Dataset, "rows", len(out.Rows))
	return out, nil
}

// Trend runs req; each row carries the value of the preceding period of
// the same dimensions as Previous.
func (s *Service) Trend(ctx context.Context, req TrendRequest) (*Result, error) {
	sql, err := TrendSQL(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.Dataset(req.Dataset); err != nil {
		return nil, err
	}
	spec, err := req.Measure.Format.Spec()
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Query(ctx, sql)
	if err != nil {
		return nil, err
	}

	name := req.Measure.outputName()
	r := &comparer{formatter: format.New(spec)}
	out := &Result{SQL: sql, Rows: make([]Row, 0, len(res.Rows))}
	for _, raw := range res.Rows {
		row, err := r.row(raw, req.Dimensions, name, "previous_"+name)
		if err != nil {
			return nil, err
		}
		row.Period = raw[periodColumn]
		row.Display[periodColumn] = format.Text(raw[periodColumn])
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

type comparer struct {
	formatter format.Formatter
}

func (c *comparer) row(raw map[string]any, dims []string, curCol, prevCol string) (Row, error) {
	cur, err := nullDecimal(raw[curCol])
	if err != nil {
		return Row{}, fmt.Errorf("column %q: %w", curCol, err)
	}
	prev, err := nullDecimal(raw[prevCol])
	if err != nil {
		return Row{}, fmt.Errorf("column %q: %w", prevCol, err)
	}
	return c.build(lo.PickByKeys(raw, dims), cur, prev), nil
}

func (c *comparer) build(dims map[string]any, cur, prev decimal.NullDecimal) Row {
	row := Row{Dimensions: dims, Current: cur, Previous: prev}
	if cur.Valid && prev.Valid {
		row.Delta = decimal.NewNullDecimal(cur.Decimal.Sub(prev.Decimal))
		row.ChangePct = aggregation.Percentage(row.Delta.Decimal, prev.Decimal.Abs())
	}
	row.Display = map[string]string{
		"current":  c.display(row.Current),
		"previous": c.display(row.Previous),
		"delta":    c.display(row.Delta),
		"change":   "",
	}
	if row.ChangePct.Valid {
		row.Display["change"] = format.Percent(row.ChangePct.Decimal, 1)
	}
	return row
}

func (c *comparer) display(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return c.formatter(v.Decimal)
}

func nullDecimal(v any) (decimal.NullDecimal, error) {
	if v == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := aggregation.ToDecimal(v)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
