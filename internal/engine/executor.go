package engine

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"duck-tables/internal/domain"
	"duck-tables/internal/duckdbsql"
)

// Column describes one result column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// Result is a fully materialised query result. DECIMAL and HUGEINT values
// come back as decimal.Decimal, UUIDs as strings.
type Result struct {
	Columns []Column         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ColumnNames returns the result column names in order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

var (
	readOnlyKeywords = []string{"SELECT", "FROM", "VALUES", "DESCRIBE", "SUMMARIZE"}
	// queryKeywords may follow the common table expressions of a WITH.
	queryKeywords = []string{"SELECT", "FROM", "VALUES"}
)

// Query runs a single read-only statement and materialises the result.
// Anything that could modify the database is rejected before it reaches
// DuckDB.
func (e *Engine) Query(ctx context.Context, query string) (*Result, error) {
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.QueryError{SQL: query, Err: err}
	}
	defer rows.Close() //nolint:errcheck

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	res := &Result{Columns: make([]Column, len(types)), Rows: []map[string]any{}}
	for i, ct := range types {
		nullable, _ := ct.Nullable()
		res.Columns[i] = Column{Name: ct.Name(), Type: ct.DatabaseTypeName(), Nullable: nullable}
	}

	values := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[res.Columns[i].Name] = normalize(v, res.Columns[i].Type)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.QueryError{SQL: query, Err: err}
	}

	e.logger.Debug("query executed", "rows", len(res.Rows), "duration", time.Since(start), "sql", query)
	return res, nil
}

// Describe returns the columns of a registered dataset.
func (e *Engine) Describe(ctx context.Context, dataset string) ([]Column, error) {
	if _, err := e.Dataset(dataset); err != nil {
		return nil, err
	}
	res, err := e.Query(ctx, "DESCRIBE "+duckdbsql.QuoteIdent(dataset))
	if err != nil {
		return nil, err
	}
	cols := make([]Column, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row["column_name"].(string)
		typ, _ := row["column_type"].(string)
		null, _ := row["null"].(string)
		cols = append(cols, Column{Name: name, Type: typ, Nullable: strings.EqualFold(null, "YES")})
	}
	return cols, nil
}

// checkReadOnly accepts exactly one statement starting with a read-only
// keyword. Leading comments and parentheses are skipped. A WITH clause is
// accepted only when the statement after its CTEs is a query.
func checkReadOnly(query string) error {
	body, err := singleStatement(query)
	if err != nil {
		return err
	}
	word := leadingWord(body)
	if word == "WITH" {
		rest, err := skipCTEs(strings.TrimLeft(body, "( \t\r\n")[len("WITH"):])
		if err != nil {
			return err
		}
		if word = leadingWord(rest); !slices.Contains(queryKeywords, word) {
			return domain.ErrValidation("only read-only statements are allowed, got WITH ... %q", word)
		}
		return nil
	}
	if slices.Contains(readOnlyKeywords, word) {
		return nil
	}
	return domain.ErrValidation("only read-only statements are allowed, got %q", word)
}

// leadingWord returns the first keyword of s in upper case, after any
// opening parentheses.
func leadingWord(s string) string {
	word := strings.ToUpper(strings.TrimLeft(s, "( \t\r\n"))
	if i := strings.IndexFunc(word, func(r rune) bool { return !(r >= 'A' && r <= 'Z') }); i >= 0 {
		word = word[:i]
	}
	return word
}

// skipCTEs consumes "[RECURSIVE] name [(cols)] AS [[NOT] MATERIALIZED] (...)"
// entries separated by commas and returns what follows them.
func skipCTEs(s string) (string, error) {
	malformed := domain.ErrValidation("malformed WITH clause")
	s = trimSpace(s)
	s = skipKeyword(s, "RECURSIVE")
	for {
		var ok bool
		if s, ok = skipIdent(s); !ok {
			return "", malformed
		}
		if strings.HasPrefix(s, "(") {
			if s, ok = skipParens(s); !ok {
				return "", malformed
			}
		}
		if !hasKeyword(s, "AS") {
			return "", malformed
		}
		s = skipKeyword(s, "AS")
		s = skipKeyword(s, "NOT")
		s = skipKeyword(s, "MATERIALIZED")
		if !strings.HasPrefix(s, "(") {
			return "", malformed
		}
		if s, ok = skipParens(s); !ok {
			return "", malformed
		}
		if !strings.HasPrefix(s, ",") {
			return s, nil
		}
		s = trimSpace(s[1:])
	}
}

func trimSpace(s string) string { return strings.TrimLeft(s, " \t\r\n") }

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func hasKeyword(s, kw string) bool {
	return len(s) >= len(kw) && strings.EqualFold(s[:len(kw)], kw) &&
		(len(s) == len(kw) || !isIdentByte(s[len(kw)]))
}

func skipKeyword(s, kw string) string {
	if hasKeyword(s, kw) {
		return trimSpace(s[len(kw):])
	}
	return s
}

// skipIdent consumes a bare or double-quoted identifier.
func skipIdent(s string) (string, bool) {
	if strings.HasPrefix(s, `"`) {
		for i := 1; i < len(s); i++ {
			if s[i] != '"' {
				continue
			}
			if i+1 < len(s) && s[i+1] == '"' {
				i++
				continue
			}
			return trimSpace(s[i+1:]), true
		}
		return "", false
	}
	i := 0
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	if i == 0 {
		return "", false
	}
	return trimSpace(s[i:]), true
}

// skipParens consumes a balanced parenthesised group starting at s[0].
// Parentheses inside quoted text do not count.
func skipParens(s string) (string, bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return trimSpace(s[i+1:]), true
			}
		}
	}
	return "", false
}

// singleStatement strips comments and one trailing semicolon and rejects
// input holding more than one statement. Quoted text is left alone.
func singleStatement(query string) (string, error) {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			for i < len(query) && query[i] != '\n' {
				i++
			}
			c = ' '
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return "", domain.ErrValidation("unterminated comment")
			}
			i += end + 3
			c = ' '
		case c == ';':
			if strings.TrimSpace(query[i+1:]) != "" {
				return "", domain.ErrValidation("only a single statement is allowed")
			}
			return strings.TrimSpace(b.String()), nil
		}
		b.WriteByte(c)
	}
	if quote != 0 {
		return "", domain.ErrValidation("unterminated quoted text")
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", domain.ErrValidation("empty statement")
	}
	return out, nil
}

// normalize converts driver-specific values into types the rest of the
// module understands.
func normalize(v any, dbType string) any {
	switch x := v.(type) {
	case duckdb.Decimal:
		if x.Value == nil {
			return nil
		}
		return decimal.NewFromBigInt(x.Value, -int32(x.Scale))
	case *big.Int:
		if x == nil {
			return nil
		}
		return decimal.NewFromBigInt(x, 0)
	case []byte:
		if strings.EqualFold(dbType, "UUID") && len(x) == 16 {
			if id, err := uuid.FromBytes(x); err == nil {
				return id.String()
			}
		}
		return string(x)
	default:
		return v
	}
}
