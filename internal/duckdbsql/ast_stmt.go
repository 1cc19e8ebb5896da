package duckdbsql

// === Statement Nodes ===

// SelectStmt is a SELECT with an optional WITH clause.
type SelectStmt struct {
	With *WithClause
	Body *SelectCore
}

func (*SelectStmt) node()     {}
func (*SelectStmt) stmtNode() {}

// WithClause holds the CTEs of a statement, in declaration order.
type WithClause struct {
	CTEs []*CTE
}

// CTE is a named sub-query. Exactly one of Select or Raw is set; Raw carries
// caller-supplied SQL text that is emitted verbatim inside the parentheses.
type CTE struct {
	Name   string
	Select *SelectStmt
	Raw    string
}

// SelectCore is a single SELECT block.
type SelectCore struct {
	Columns []SelectItem
	From    *FromClause
	Where   Expr
	GroupBy []Expr
	OrderBy []OrderByItem
	Limit   Expr
	Offset  Expr
}

// SelectItem is one entry in the SELECT list.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT "t".*
	Expr      Expr
	Alias     string
}

// FromClause is a source relation followed by zero or more joins.
type FromClause struct {
	Source TableRef
	Joins  []*Join
}

// Join represents a JOIN clause. Condition and Using are mutually exclusive.
type Join struct {
	Type      JoinType
	Right     TableRef
	Condition Expr
	Using     []string
}

// JoinType is the SQL keyword for a join.
type JoinType string

// JoinInner and friends classify supported join types.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
)
