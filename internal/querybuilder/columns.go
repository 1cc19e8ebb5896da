package querybuilder

import (
	"strings"

	"github.com/samber/lo"

	"duck-tables/internal/domain"
	"duck-tables/internal/duckdbsql"
)

// ToColumnNames renders each column as "table"."column", joined by ", ".
func ToColumnNames(cols ...ColumnReference) string {
	return strings.Join(lo.Map(cols, func(c ColumnReference, _ int) string {
		return duckdbsql.FormatExpr(c.Expr())
	}), ", ")
}

// AggregateFunc names an aggregate function.
type AggregateFunc string

// AggSum and friends are the aggregates a measure may use.
const (
	AggSum   AggregateFunc = "SUM"
	AggCount AggregateFunc = "COUNT"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// ParseAggregateFunc accepts an aggregate name in any case.
func ParseAggregateFunc(s string) (AggregateFunc, error) {
	switch fn := AggregateFunc(strings.ToUpper(strings.TrimSpace(s))); fn {
	case AggSum, AggCount, AggAvg, AggMin, AggMax:
		return fn, nil
	default:
		return "", domain.ErrValidation("unknown aggregate function %q", s)
	}
}

// Aggregate wraps the columns in fn, e.g. SUM("t"."c").
func Aggregate(fn AggregateFunc, cols ...ColumnReference) *duckdbsql.FuncCall {
	args := lo.Map(cols, func(c ColumnReference, _ int) duckdbsql.Expr {
		return c.Expr()
	})
	return duckdbsql.Func(string(fn), args...)
}

// Sum renders SUM(<columns>).
func Sum(cols ...ColumnReference) string {
	return duckdbsql.FormatExpr(Aggregate(AggSum, cols...))
}

// Count renders COUNT(<columns>).
func Count(cols ...ColumnReference) string {
	return duckdbsql.FormatExpr(Aggregate(AggCount, cols...))
}

// Avg renders AVG(<columns>).
func Avg(cols ...ColumnReference) string {
	return duckdbsql.FormatExpr(Aggregate(AggAvg, cols...))
}

// Min renders MIN(<columns>).
func Min(cols ...ColumnReference) string {
	return duckdbsql.FormatExpr(Aggregate(AggMin, cols...))
}

// Max renders MAX(<columns>).
func Max(cols ...ColumnReference) string {
	return duckdbsql.FormatExpr(Aggregate(AggMax, cols...))
}

// DateTrunc returns DATE_TRUNC('<part>', "t"."c"), the usual period segment.
func DateTrunc(part string, col ColumnReference) *duckdbsql.FuncCall {
	return duckdbsql.Func("DATE_TRUNC", duckdbsql.String(strings.ToLower(part)), col.Expr())
}
