// Package querybuilder renders declarative table descriptors (dimensions,
// segments, measures, joins, window functions) into DuckDB SQL.
//
// Nothing here executes SQL. Every builder goes through the duckdbsql AST so
// identifiers and literals are quoted by the formatter; RawExpr is the only
// way to inject unchecked text and callers must opt into it explicitly.
package querybuilder

import (
	"duck-tables/internal/duckdbsql"
)

// ColumnReference identifies a column of a registered dataset.
type ColumnReference struct {
	TableName  string `json:"table_name" yaml:"table_name"`
	ColumnName string `json:"column_name" yaml:"column_name"`
}

// Expr returns the column as a quoted, table-qualified reference.
func (c ColumnReference) Expr() *duckdbsql.ColumnRef {
	return duckdbsql.Col(c.TableName, c.ColumnName)
}

// Segment is a derived grouping expression, such as a date truncation.
type Segment struct {
	Name       string
	Expression duckdbsql.Expr
}

// Field is an output column that is selected but never grouped or ordered on.
type Field struct {
	Name       string
	Expression duckdbsql.Expr
}

// QueryOptions describes a grouped aggregation over a single dataset.
type QueryOptions struct {
	Dataset         string
	GroupDimensions []ColumnReference
	Segments        []Segment
	Fields          []Field
	Filters         []Filter
}
