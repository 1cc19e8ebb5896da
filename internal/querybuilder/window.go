package querybuilder

import (
	"duck-tables/internal/duckdbsql"
)

// WindowDef is the OVER clause of a window function. Columns are plain
// identifiers of the enclosing query, not table-qualified.
type WindowDef struct {
	PartitionBy []string `json:"partition_by,omitempty" yaml:"partition_by,omitempty"`
	OrderBy     string   `json:"order_by,omitempty" yaml:"order_by,omitempty"`
}

func (w *WindowDef) spec() *duckdbsql.WindowSpec {
	if w == nil {
		return nil
	}
	spec := &duckdbsql.WindowSpec{}
	for _, col := range w.PartitionBy {
		spec.PartitionBy = append(spec.PartitionBy, duckdbsql.Col("", col))
	}
	if w.OrderBy != "" {
		spec.OrderBy = []duckdbsql.OrderByItem{{Expr: duckdbsql.Col("", w.OrderBy)}}
	}
	return spec
}

// Lag returns LAG(expr, offset, default) with an optional OVER clause. A nil
// defaultValue renders as NULL.
func Lag(expr duckdbsql.Expr, offset int, defaultValue duckdbsql.Expr, window *WindowDef) *duckdbsql.FuncCall {
	return offsetFunc("LAG", expr, offset, defaultValue, window)
}

// Lead is the forward-looking twin of Lag.
func Lead(expr duckdbsql.Expr, offset int, defaultValue duckdbsql.Expr, window *WindowDef) *duckdbsql.FuncCall {
	return offsetFunc("LEAD", expr, offset, defaultValue, window)
}

// LagSQL is the text form of Lag: expr and defaultValue are interpolated
// verbatim, so string defaults must already be quoted by the caller.
//
//	LagSQL("col", 1, nil, nil) == "LAG(col, 1, NULL)"
func LagSQL(expr string, offset int, defaultValue *string, window *WindowDef) string {
	var def duckdbsql.Expr
	if defaultValue != nil {
		def = duckdbsql.Raw(*defaultValue)
	}
	return duckdbsql.FormatExpr(Lag(duckdbsql.Raw(expr), offset, def, window))
}

func offsetFunc(name string, expr duckdbsql.Expr, offset int, defaultValue duckdbsql.Expr, window *WindowDef) *duckdbsql.FuncCall {
	if defaultValue == nil {
		defaultValue = duckdbsql.Null()
	}
	fn := duckdbsql.Func(name, expr, duckdbsql.Int(int64(offset)), defaultValue)
	fn.Window = window.spec()
	return fn
}
