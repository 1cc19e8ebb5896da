package aggregation

import (
	"strings"

	"github.com/shopspring/decimal"

	"duck-tables/internal/domain"
)

// Func is the footer contract: given a column and the visible rows, return
// the footer value or NULL.
type Func func(columnID string, rows []Row) (decimal.NullDecimal, error)

// Kind names a footer aggregation.
type Kind string

// KindSum and friends are the footer aggregations a measure can ask for.
const (
	KindNone  Kind = ""
	KindSum   Kind = "sum"
	KindAvg   Kind = "avg"
	KindCount Kind = "count"
	KindMin   Kind = "min"
	KindMax   Kind = "max"
)

var funcs = map[Kind]Func{
	KindSum:   Sum,
	KindAvg:   Average,
	KindCount: Count,
	KindMin:   Min,
	KindMax:   Max,
}

// Lookup returns the Func for kind. KindNone yields a nil Func and no error.
func Lookup(kind Kind) (Func, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(string(kind))))
	if k == KindNone {
		return nil, nil
	}
	fn, ok := funcs[k]
	if !ok {
		return nil, domain.ErrValidation("unknown footer aggregation %q", kind)
	}
	return fn, nil
}
