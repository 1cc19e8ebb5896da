// Package aggregation computes table footer figures (sum, average, count,
// min, max, percentage) over the visible rows of a column using
// arbitrary-precision decimals, so that summing "0.1" ten times is exactly 1.
package aggregation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotNumeric is wrapped by every error caused by a value that cannot be
// read as a decimal.
var ErrNotNumeric = errors.New("value is not numeric")

// Row is anything that can hand out a cell value by column id.
type Row interface {
	GetValue(columnID string) any
}

// MapRow is a Row backed by a map, the shape engine results come back in.
type MapRow map[string]any

// GetValue implements Row.
func (r MapRow) GetValue(columnID string) any {
	return r[columnID]
}

// Rows adapts a slice of maps to []Row.
func Rows(maps []map[string]any) []Row {
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = MapRow(m)
	}
	return out
}

// ToDecimal coerces a cell value to a decimal through its textual form.
// Floats go through their shortest round-tripping representation. NaN and
// infinities are rejected.
func ToDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x == nil {
			return decimal.Decimal{}, fmt.Errorf("%w: nil", ErrNotNumeric)
		}
		return *x, nil
	case string:
		return parse(x)
	case []byte:
		return parse(string(x))
	case json.Number:
		return parse(x.String())
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int8:
		return decimal.NewFromInt(int64(x)), nil
	case int16:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint:
		return decimal.NewFromUint64(uint64(x)), nil
	case uint8:
		return decimal.NewFromUint64(uint64(x)), nil
	case uint16:
		return decimal.NewFromUint64(uint64(x)), nil
	case uint32:
		return decimal.NewFromUint64(uint64(x)), nil
	case uint64:
		return decimal.NewFromUint64(x), nil
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrNotNumeric, x)
		}
		return decimal.NewFromFloat32(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrNotNumeric, x)
		}
		return decimal.NewFromFloat(x), nil
	case fmt.Stringer:
		return parse(x.String())
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unsupported type %T", ErrNotNumeric, v)
	}
}

func parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return d, nil
}

// values collects the non-nil cells of columnID. A nil cell is SQL NULL and
// does not take part in any aggregate.
func values(columnID string, rows []Row) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(rows))
	for i, row := range rows {
		if row == nil {
			continue
		}
		v := row.GetValue(columnID)
		if v == nil {
			continue
		}
		d, err := ToDecimal(v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", columnID, i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Sum folds the column into a decimal sum. No rows (or only NULL cells)
// yields an invalid NullDecimal. A value that is not numeric is an error
// wrapping ErrNotNumeric; it is never skipped.
func Sum(columnID string, rows []Row) (decimal.NullDecimal, error) {
	vals, err := values(columnID, rows)
	if err != nil || len(vals) == 0 {
		return decimal.NullDecimal{}, err
	}
	sum := vals[0]
	for _, d := range vals[1:] {
		sum = sum.Add(d)
	}
	return valid(sum), nil
}

// Average is Sum divided by the number of non-NULL cells.
func Average(columnID string, rows []Row) (decimal.NullDecimal, error) {
	vals, err := values(columnID, rows)
	if err != nil || len(vals) == 0 {
		return decimal.NullDecimal{}, err
	}
	return valid(decimal.Sum(vals[0], vals[1:]...).Div(decimal.NewFromInt(int64(len(vals))))), nil
}

// Count counts the non-NULL cells. Values are not parsed, so it works on
// text columns too, and it is never NULL.
func Count(columnID string, rows []Row) (decimal.NullDecimal, error) {
	var n int64
	for _, row := range rows {
		if row != nil && row.GetValue(columnID) != nil {
			n++
		}
	}
	return valid(decimal.NewFromInt(n)), nil
}

// Min returns the smallest value of the column.
func Min(columnID string, rows []Row) (decimal.NullDecimal, error) {
	vals, err := values(columnID, rows)
	if err != nil || len(vals) == 0 {
		return decimal.NullDecimal{}, err
	}
	return valid(decimal.Min(vals[0], vals[1:]...)), nil
}

// Max returns the largest value of the column.
func Max(columnID string, rows []Row) (decimal.NullDecimal, error) {
	vals, err := values(columnID, rows)
	if err != nil || len(vals) == 0 {
		return decimal.NullDecimal{}, err
	}
	return valid(decimal.Max(vals[0], vals[1:]...)), nil
}

// Percentage returns part as a percentage of whole. A zero whole is NULL.
func Percentage(part, whole decimal.Decimal) decimal.NullDecimal {
	if whole.IsZero() {
		return decimal.NullDecimal{}
	}
	return valid(part.Div(whole).Mul(decimal.NewFromInt(100)))
}

// String renders a footer value, or "" for NULL.
func String(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
