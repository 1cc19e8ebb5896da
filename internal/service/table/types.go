package table

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"duck-tables/internal/aggregation"
	"duck-tables/internal/domain"
	"duck-tables/internal/engine"
	"duck-tables/internal/format"
	"duck-tables/internal/querybuilder"
)

// Truncations accepted by a time segment.
var truncations = map[string]string{
	"day":     "2006-01-02",
	"week":    "2006-01-02",
	"month":   "2006-01",
	"quarter": "2006-01",
	"year":    "2006",
}

// SegmentDef groups on a truncated date or timestamp column.
type SegmentDef struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Column   string `json:"column" yaml:"column"`
	Truncate string `json:"truncate" yaml:"truncate"`
}

func (s SegmentDef) outputName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Column + "_" + strings.ToLower(s.Truncate)
}

// Measure is an aggregated output column with optional footer and display
// format.
type Measure struct {
	Name        string                     `json:"name,omitempty" yaml:"name,omitempty"`
	Column      string                     `json:"column" yaml:"column"`
	Aggregation querybuilder.AggregateFunc `json:"aggregation" yaml:"aggregation"`
	Footer      aggregation.Kind           `json:"footer,omitempty" yaml:"footer,omitempty"`
	Format      format.Config              `json:"format,omitempty" yaml:"format,omitempty"`
}

func (m Measure) outputName() string {
	if m.Name != "" {
		return m.Name
	}
	col := m.Column
	if col == "*" {
		col = "all"
	}
	return strings.ToLower(string(m.Aggregation)) + "_" + col
}

// FilterDef restricts rows of the request's dataset.
type FilterDef struct {
	Column string                `json:"column" yaml:"column"`
	Op     querybuilder.FilterOp `json:"op" yaml:"op"`
	Values []any                 `json:"values,omitempty" yaml:"values,omitempty"`
}

// Request is a declarative table: which dataset, how to group it, what to
// measure and which page to return.
type Request struct {
	Dataset    string       `json:"dataset" yaml:"dataset"`
	Dimensions []string     `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Segments   []SegmentDef `json:"segments,omitempty" yaml:"segments,omitempty"`
	Measures   []Measure    `json:"measures,omitempty" yaml:"measures,omitempty"`
	Filters    []FilterDef  `json:"filters,omitempty" yaml:"filters,omitempty"`
	domain.PageRequest `yaml:",inline"`
}

// Plan is the SQL a Request compiles to.
type Plan struct {
	SQL      string `json:"sql"`
	CountSQL string `json:"count_sql"`
	PageSQL  string `json:"page_sql"`
}

// Footer is the footer cell of one measure.
type Footer struct {
	Column  string              `json:"column"`
	Kind    aggregation.Kind    `json:"kind"`
	Value   decimal.NullDecimal `json:"value"`
	Display string              `json:"display"`
}

// Page is one page of a table with its footers.
type Page struct {
	Plan      Plan                `json:"plan"`
	Columns   []engine.Column     `json:"columns"`
	Rows      []map[string]any    `json:"rows"`
	Display   []map[string]string `json:"display"`
	Footers   []Footer            `json:"footers,omitempty"`
	Page      int                 `json:"page"`
	PageSize  int                 `json:"page_size"`
	TotalRows int                 `json:"total_rows"`
	PageCount int                 `json:"page_count"`
}

// compiled is a validated Request ready to build and render.
type compiled struct {
	opts       querybuilder.QueryOptions
	formatters map[string]format.Formatter
	footers    []compiledFooter
}

type compiledFooter struct {
	column    string
	kind      aggregation.Kind
	fn        aggregation.Func
	formatter format.Formatter
}

func (r Request) compile() (*compiled, error) {
	if strings.TrimSpace(r.Dataset) == "" {
		return nil, domain.ErrValidation("dataset is required")
	}
	if r.PageSize > domain.MaxPageSize {
		return nil, domain.ErrValidation("page_size %d exceeds the maximum of %d", r.PageSize, domain.MaxPageSize)
	}
	if r.Page < 0 {
		return nil, domain.ErrValidation("page must not be negative")
	}

	col := func(name string) querybuilder.ColumnReference {
		return querybuilder.ColumnReference{TableName: r.Dataset, ColumnName: name}
	}
	c := &compiled{
		opts:       querybuilder.QueryOptions{Dataset: r.Dataset},
		formatters: make(map[string]format.Formatter),
	}

	for _, d := range r.Dimensions {
		if strings.TrimSpace(d) == "" {
			return nil, domain.ErrValidation("dimension names must not be empty")
		}
		c.opts.GroupDimensions = append(c.opts.GroupDimensions, col(d))
	}

	for _, s := range r.Segments {
		layout, ok := truncations[strings.ToLower(s.Truncate)]
		if !ok {
			return nil, domain.ErrValidation("segment on %q: unknown truncation %q", s.Column, s.Truncate)
		}
		if s.Column == "" {
			return nil, domain.ErrValidation("segment column is required")
		}
		name := s.outputName()
		c.opts.Segments = append(c.opts.Segments, querybuilder.Segment{
			Name:       name,
			Expression: querybuilder.DateTrunc(s.Truncate, col(s.Column)),
		})
		c.formatters[name] = format.New(format.TimeSpec{Layout: layout})
	}

	for _, m := range r.Measures {
		fn, err := querybuilder.ParseAggregateFunc(string(m.Aggregation))
		if err != nil {
			return nil, err
		}
		m.Aggregation = fn
		if m.Column == "" {
			return nil, domain.ErrValidation("measure %q has no column", m.Name)
		}
		expr := querybuilder.Aggregate(fn, col(m.Column))
		if m.Column == "*" {
			if fn != querybuilder.AggCount {
				return nil, domain.ErrValidation("only COUNT accepts *")
			}
			expr.Args, expr.Star = nil, true
		}
		name := m.outputName()
		c.opts.Fields = append(c.opts.Fields, querybuilder.Field{Name: name, Expression: expr})

		spec, err := m.Format.Spec()
		if err != nil {
			return nil, fmt.Errorf("measure %q: %w", name, err)
		}
		formatter := format.New(spec)
		c.formatters[name] = formatter

		footer, err := aggregation.Lookup(m.Footer)
		if err != nil {
			return nil, fmt.Errorf("measure %q: %w", name, err)
		}
		if footer != nil {
			kind := aggregation.Kind(strings.ToLower(string(m.Footer)))
			c.footers = append(c.footers, compiledFooter{column: name, kind: kind, fn: footer, formatter: formatter})
		}
	}

	for _, f := range r.Filters {
		c.opts.Filters = append(c.opts.Filters, querybuilder.Filter{Column: col(f.Column), Op: f.Op, Values: f.Values})
	}
	return c, nil
}
