package duckdbsql

// === Table Reference Nodes ===

// TableName references a table, view or CTE by name (up to schema.name).
type TableName struct {
	Schema string
	Name   string
	Alias  string
}

func (*TableName) node()         {}
func (*TableName) tableRefNode() {}

// DerivedTable is a parenthesized sub-query in FROM.
type DerivedTable struct {
	Select *SelectStmt
	Alias  string
}

func (*DerivedTable) node()         {}
func (*DerivedTable) tableRefNode() {}
