package duckdbsql

import "strings"

func (f *formatter) formatExpr(e Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *Literal:
		f.formatLiteral(expr)
	case *ColumnRef:
		if expr.Table != "" {
			f.writeIdent(expr.Table)
			f.write(".")
		}
		f.writeIdent(expr.Column)
	case *BinaryExpr:
		f.formatExpr(expr.Left)
		f.space()
		f.write(string(expr.Op))
		f.space()
		f.formatExpr(expr.Right)
	case *ParenExpr:
		f.write("(")
		f.formatExpr(expr.Expr)
		f.write(")")
	case *FuncCall:
		f.formatFuncCall(expr)
	case *InExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT")
		}
		f.write(" IN (")
		f.commaSep(len(expr.Values), func(i int) {
			f.formatExpr(expr.Values[i])
		})
		f.write(")")
	case *BetweenExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT")
		}
		f.write(" BETWEEN ")
		f.formatExpr(expr.Low)
		f.write(" AND ")
		f.formatExpr(expr.High)
	case *IsNullExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" IS NOT NULL")
		} else {
			f.write(" IS NULL")
		}
	case *LikeExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT")
		}
		if expr.ILike {
			f.write(" ILIKE ")
		} else {
			f.write(" LIKE ")
		}
		f.formatExpr(expr.Pattern)
		if expr.Escape != "" {
			f.write(" ESCAPE ")
			f.write(QuoteString(expr.Escape))
		}
	case *RawExpr:
		f.write(expr.SQL)
	}
}

func (f *formatter) formatLiteral(lit *Literal) {
	switch lit.Type {
	case LiteralString:
		f.write(QuoteString(lit.Value))
	case LiteralBool:
		f.write(strings.ToUpper(lit.Value))
	case LiteralNull:
		f.write("NULL")
	default:
		f.write(lit.Value)
	}
}

func (f *formatter) formatFuncCall(fn *FuncCall) {
	f.write(fn.Name)
	f.write("(")
	if fn.Distinct {
		f.write("DISTINCT ")
	}
	if fn.Star {
		f.write("*")
	} else {
		f.commaSep(len(fn.Args), func(i int) {
			f.formatExpr(fn.Args[i])
		})
	}
	f.write(")")

	if fn.Window != nil {
		f.write(" OVER ")
		f.formatWindowSpec(fn.Window)
	}
}

func (f *formatter) formatWindowSpec(w *WindowSpec) {
	f.write("(")
	if len(w.PartitionBy) > 0 {
		f.write("PARTITION BY ")
		f.commaSep(len(w.PartitionBy), func(i int) {
			f.formatExpr(w.PartitionBy[i])
		})
	}
	if len(w.OrderBy) > 0 {
		if len(w.PartitionBy) > 0 {
			f.space()
		}
		f.write("ORDER BY ")
		f.commaSep(len(w.OrderBy), func(i int) {
			f.formatOrderByItem(w.OrderBy[i])
		})
	}
	f.write(")")
}

func (f *formatter) formatOrderByItem(item OrderByItem) {
	f.formatExpr(item.Expr)
	if item.Desc {
		f.write(" DESC")
	}
	if item.NullsFirst != nil {
		if *item.NullsFirst {
			f.write(" NULLS FIRST")
		} else {
			f.write(" NULLS LAST")
		}
	}
}
