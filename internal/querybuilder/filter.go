package querybuilder

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"duck-tables/internal/domain"
	"duck-tables/internal/duckdbsql"
)

// FilterOp is a comparison applied to a single column.
type FilterOp string

// FilterEq and friends are the supported filter operators.
const (
	FilterEq       FilterOp = "eq"
	FilterNeq      FilterOp = "neq"
	FilterGt       FilterOp = "gt"
	FilterGte      FilterOp = "gte"
	FilterLt       FilterOp = "lt"
	FilterLte      FilterOp = "lte"
	FilterIn       FilterOp = "in"
	FilterBetween  FilterOp = "between"
	FilterContains FilterOp = "contains"
	FilterIsNull   FilterOp = "is_null"
	FilterNotNull  FilterOp = "not_null"
)

var comparisonOps = map[FilterOp]duckdbsql.BinaryOp{
	FilterEq:  duckdbsql.OpEq,
	FilterNeq: duckdbsql.OpNe,
	FilterGt:  duckdbsql.OpGt,
	FilterGte: duckdbsql.OpGte,
	FilterLt:  duckdbsql.OpLt,
	FilterLte: duckdbsql.OpLte,
}

// likeEscape marks the next pattern character in a contains filter as
// literal text.
const likeEscape = `\`

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// Filter restricts the rows of a dataset before grouping.
type Filter struct {
	Column ColumnReference `json:"column" yaml:"column"`
	Op     FilterOp        `json:"op" yaml:"op"`
	Values []any           `json:"values" yaml:"values"`
}

// Expr converts the filter into a boolean expression. Values become typed
// literals; anything that is not a string, number, bool, time or nil is
// rejected.
func (f Filter) Expr() (duckdbsql.Expr, error) {
	if f.Column.ColumnName == "" {
		return nil, domain.ErrValidation("filter column is required")
	}
	col := f.Column.Expr()

	if op, ok := comparisonOps[f.Op]; ok {
		if err := f.wantValues(1); err != nil {
			return nil, err
		}
		v, err := Literal(f.Values[0])
		if err != nil {
			return nil, err
		}
		return duckdbsql.Binary(col, op, v), nil
	}

	switch f.Op {
	case FilterIn:
		if len(f.Values) == 0 {
			return nil, domain.ErrValidation("filter %q on %q needs at least one value", f.Op, f.Column.ColumnName)
		}
		values := make([]duckdbsql.Expr, 0, len(f.Values))
		for _, raw := range f.Values {
			v, err := Literal(raw)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return &duckdbsql.InExpr{Expr: col, Values: values}, nil
	case FilterBetween:
		if err := f.wantValues(2); err != nil {
			return nil, err
		}
		low, err := Literal(f.Values[0])
		if err != nil {
			return nil, err
		}
		high, err := Literal(f.Values[1])
		if err != nil {
			return nil, err
		}
		return &duckdbsql.BetweenExpr{Expr: col, Low: low, High: high}, nil
	case FilterContains:
		if err := f.wantValues(1); err != nil {
			return nil, err
		}
		s, ok := f.Values[0].(string)
		if !ok {
			return nil, domain.ErrValidation("filter %q on %q needs a string value", f.Op, f.Column.ColumnName)
		}
		return &duckdbsql.LikeExpr{
			Expr:    col,
			ILike:   true,
			Pattern: duckdbsql.String("%" + likeEscaper.Replace(s) + "%"),
			Escape:  likeEscape,
		}, nil
	case FilterIsNull:
		return &duckdbsql.IsNullExpr{Expr: col}, nil
	case FilterNotNull:
		return &duckdbsql.IsNullExpr{Expr: col, Not: true}, nil
	default:
		return nil, domain.ErrValidation("unknown filter operator %q", f.Op)
	}
}

func (f Filter) wantValues(n int) error {
	if len(f.Values) != n {
		return domain.ErrValidation("filter %q on %q needs %d value(s), got %d", f.Op, f.Column.ColumnName, n, len(f.Values))
	}
	return nil
}

// Literal converts a Go value into a SQL literal node.
func Literal(v any) (duckdbsql.Expr, error) {
	switch x := v.(type) {
	case nil:
		return duckdbsql.Null(), nil
	case string:
		return duckdbsql.String(x), nil
	case bool:
		return duckdbsql.Bool(x), nil
	case int:
		return duckdbsql.Int(int64(x)), nil
	case int32:
		return duckdbsql.Int(int64(x)), nil
	case int64:
		return duckdbsql.Int(x), nil
	case float32:
		return duckdbsql.Number(strconv.FormatFloat(float64(x), 'f', -1, 32)), nil
	case float64:
		return duckdbsql.Number(strconv.FormatFloat(x, 'f', -1, 64)), nil
	case decimal.Decimal:
		return duckdbsql.Number(x.String()), nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return nil, domain.ErrValidation("invalid numeric literal %q", x.String())
		}
		return duckdbsql.Number(d.String()), nil
	case time.Time:
		return duckdbsql.String(x.UTC().Format("2006-01-02 15:04:05")), nil
	default:
		return nil, domain.ErrValidation("unsupported literal type %s", fmt.Sprintf("%T", v))
	}
}

func whereClause(filters []Filter) (duckdbsql.Expr, error) {
	conds := make([]duckdbsql.Expr, 0, len(filters))
	for _, f := range filters {
		e, err := f.Expr()
		if err != nil {
			return nil, err
		}
		conds = append(conds, e)
	}
	return duckdbsql.And(conds...), nil
}
