package duckdbsql

import (
	"strconv"
	"strings"
)

// Col returns a column reference. table may be empty.
func Col(table, column string) *ColumnRef {
	return &ColumnRef{Table: table, Column: column}
}

// String returns a string literal.
func String(s string) *Literal {
	return &Literal{Type: LiteralString, Value: s}
}

// Int returns an integer literal.
func Int(n int64) *Literal {
	return &Literal{Type: LiteralNumber, Value: strconv.FormatInt(n, 10)}
}

// Number returns a numeric literal from its textual form. The text is not
// validated; callers pass values that already went through a numeric parser.
func Number(text string) *Literal {
	return &Literal{Type: LiteralNumber, Value: text}
}

// Bool returns a boolean literal.
func Bool(b bool) *Literal {
	return &Literal{Type: LiteralBool, Value: strconv.FormatBool(b)}
}

// Null returns the NULL literal.
func Null() *Literal {
	return &Literal{Type: LiteralNull}
}

// Raw wraps caller-supplied SQL that is emitted verbatim.
func Raw(sql string) *RawExpr {
	return &RawExpr{SQL: sql}
}

// Func returns a call to name with the given arguments. The name is
// upper-cased so aggregate and window functions render consistently.
func Func(name string, args ...Expr) *FuncCall {
	return &FuncCall{Name: strings.ToUpper(name), Args: args}
}

// Binary returns left op right.
func Binary(left Expr, op BinaryOp, right Expr) *BinaryExpr {
	return &BinaryExpr{Left: left, Op: op, Right: right}
}

// And joins conditions with AND. Nil entries are skipped; a single
// condition is returned unchanged and no conditions yields nil.
func And(conds ...Expr) Expr {
	var out Expr
	for _, c := range conds {
		if c == nil {
			continue
		}
		if out == nil {
			out = c
			continue
		}
		out = &BinaryExpr{Left: out, Op: OpAnd, Right: c}
	}
	return out
}

// Paren wraps e in parentheses.
func Paren(e Expr) *ParenExpr {
	return &ParenExpr{Expr: e}
}
