package querybuilder

import (
	"strings"

	"duck-tables/internal/domain"
	"duck-tables/internal/duckdbsql"
)

// JoinMode selects the join keyword used between the two sides.
type JoinMode string

// JoinInner and friends are the accepted join modes.
const (
	JoinInner JoinMode = "inner"
	JoinLeft  JoinMode = "left"
	JoinRight JoinMode = "right"
	JoinFull  JoinMode = "full"
)

var joinTypes = map[JoinMode]duckdbsql.JoinType{
	JoinInner: duckdbsql.JoinInner,
	JoinLeft:  duckdbsql.JoinLeft,
	JoinRight: duckdbsql.JoinRight,
	JoinFull:  duckdbsql.JoinFull,
}

// ParseJoinMode accepts a join mode in any case. Anything outside
// inner/left/right/full is a validation error.
func ParseJoinMode(s string) (JoinMode, error) {
	m := JoinMode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := joinTypes[m]; !ok {
		return "", domain.ErrValidation("unknown join mode %q (want inner, left, right or full)", s)
	}
	return m, nil
}

// NamedQuery is a sub-query that becomes a CTE. Query is raw SQL text.
type NamedQuery struct {
	Name  string `json:"name" yaml:"name"`
	Query string `json:"query" yaml:"query"`
}

// Pick surfaces right-side columns under a prefix, e.g. "prev_" + "total".
type Pick struct {
	Prefix  string   `json:"prefix" yaml:"prefix"`
	Columns []string `json:"columns" yaml:"columns"`
}

// JoinSpec describes a two-CTE join query.
type JoinSpec struct {
	Left  NamedQuery `json:"left" yaml:"left"`
	Right NamedQuery `json:"right" yaml:"right"`
	Using []string   `json:"using" yaml:"using"`
	Mode  JoinMode   `json:"mode" yaml:"mode"`
	Pick  *Pick      `json:"pick,omitempty" yaml:"pick,omitempty"`
}

// BuildJoin assembles
//
//	WITH "<left>" AS (<left sql>), "<right>" AS (<right sql>)
//	SELECT "<left>".*[, "<right>"."<col>" AS "<prefix><col>", ...]
//	FROM "<left>" <MODE> JOIN "<right>" USING ("<col>", ...)
func BuildJoin(spec JoinSpec) (*duckdbsql.SelectStmt, error) {
	mode, err := ParseJoinMode(string(spec.Mode))
	if err != nil {
		return nil, err
	}
	left, err := cteFor(spec.Left, "left")
	if err != nil {
		return nil, err
	}
	right, err := cteFor(spec.Right, "right")
	if err != nil {
		return nil, err
	}
	if left.Name == right.Name {
		return nil, domain.ErrValidation("join sides must have different names, both are %q", left.Name)
	}
	if len(spec.Using) == 0 {
		return nil, domain.ErrValidation("join needs at least one USING column")
	}
	for _, col := range spec.Using {
		if strings.TrimSpace(col) == "" {
			return nil, domain.ErrValidation("USING column names must not be empty")
		}
	}

	columns := []duckdbsql.SelectItem{{TableStar: left.Name}}
	if spec.Pick != nil {
		for _, col := range spec.Pick.Columns {
			if strings.TrimSpace(col) == "" {
				return nil, domain.ErrValidation("picked column names must not be empty")
			}
			columns = append(columns, duckdbsql.SelectItem{
				Expr:  duckdbsql.Col(right.Name, col),
				Alias: spec.Pick.Prefix + col,
			})
		}
	}

	return &duckdbsql.SelectStmt{
		With: &duckdbsql.WithClause{CTEs: []*duckdbsql.CTE{left, right}},
		Body: &duckdbsql.SelectCore{
			Columns: columns,
			From: &duckdbsql.FromClause{
				Source: &duckdbsql.TableName{Name: left.Name},
				Joins: []*duckdbsql.Join{{
					Type:  joinTypes[mode],
					Right: &duckdbsql.TableName{Name: right.Name},
					Using: spec.Using,
				}},
			},
		},
	}, nil
}

// BuildJoinQuery renders BuildJoin(spec) as SQL text.
func BuildJoinQuery(spec JoinSpec) (string, error) {
	stmt, err := BuildJoin(spec)
	if err != nil {
		return "", err
	}
	return duckdbsql.Format(stmt), nil
}

// cteFor validates one side of a join. A single trailing semicolon is
// tolerated; any other semicolon means multiple statements and is rejected.
func cteFor(q NamedQuery, side string) (*duckdbsql.CTE, error) {
	if strings.TrimSpace(q.Name) == "" {
		return nil, domain.ErrValidation("%s query name is required", side)
	}
	body := strings.TrimSpace(q.Query)
	body = strings.TrimSpace(strings.TrimSuffix(body, ";"))
	if body == "" {
		return nil, domain.ErrValidation("%s query %q is empty", side, q.Name)
	}
	if strings.Contains(body, ";") {
		return nil, domain.ErrValidation("%s query %q must be a single statement", side, q.Name)
	}
	return &duckdbsql.CTE{Name: q.Name, Raw: body}, nil
}
