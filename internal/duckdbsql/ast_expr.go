package duckdbsql

// === Expression Nodes ===

// ColumnRef is a column, optionally qualified with a table name or alias.
type ColumnRef struct {
	Table  string
	Column string
}

func (*ColumnRef) node()     {}
func (*ColumnRef) exprNode() {}

// Literal is a constant value. Value holds the textual form; strings are
// stored unescaped.
type Literal struct {
	Type  LiteralType
	Value string
}

func (*Literal) node()     {}
func (*Literal) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralNumber and friends classify literal values.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// BinaryOp is an infix operator.
type BinaryOp string

// OpEq and friends are the infix operators the formatter knows about.
const (
	OpEq     BinaryOp = "="
	OpNe     BinaryOp = "<>"
	OpLt     BinaryOp = "<"
	OpLte    BinaryOp = "<="
	OpGt     BinaryOp = ">"
	OpGte    BinaryOp = ">="
	OpAnd    BinaryOp = "AND"
	OpOr     BinaryOp = "OR"
	OpPlus   BinaryOp = "+"
	OpMinus  BinaryOp = "-"
	OpMul    BinaryOp = "*"
	OpDiv    BinaryOp = "/"
	OpConcat BinaryOp = "||"
)

// BinaryExpr represents left op right.
type BinaryExpr struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

func (*ParenExpr) node()     {}
func (*ParenExpr) exprNode() {}

// FuncCall represents a function or aggregate call.
type FuncCall struct {
	Name     string // written unquoted, in the given case
	Distinct bool   // COUNT(DISTINCT ...)
	Star     bool   // COUNT(*)
	Args     []Expr
	Window   *WindowSpec // OVER (...)
}

func (*FuncCall) node()     {}
func (*FuncCall) exprNode() {}

// WindowSpec is the body of an OVER clause.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
}

// OrderByItem is one key of an ORDER BY list.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil = engine default
}

// InExpr represents expr [NOT] IN (values...).
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
}

func (*InExpr) node()     {}
func (*InExpr) exprNode() {}

// BetweenExpr represents expr [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) node()     {}
func (*BetweenExpr) exprNode() {}

// IsNullExpr represents expr IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

func (*IsNullExpr) node()     {}
func (*IsNullExpr) exprNode() {}

// LikeExpr represents expr [NOT] LIKE|ILIKE pattern [ESCAPE 'c'].
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Pattern Expr
	ILike   bool
	Escape  string
}

func (*LikeExpr) node()     {}
func (*LikeExpr) exprNode() {}

// RawExpr is emitted verbatim. It exists for caller-supplied fragments that
// have no typed representation; nothing inside it is quoted or checked.
type RawExpr struct {
	SQL string
}

func (*RawExpr) node()     {}
func (*RawExpr) exprNode() {}
