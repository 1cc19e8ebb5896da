// Package duckdbsql is a small typed SQL AST for the DuckDB dialect together
// with a formatter that renders it back to flat SQL text.
//
// Builders construct nodes instead of concatenating strings, so identifier
// quoting and literal escaping happen in one place (the formatter).
package duckdbsql

// Node is the base interface for all AST nodes.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// TableRef is a marker interface for table reference nodes.
type TableRef interface {
	Node
	tableRefNode()
}
