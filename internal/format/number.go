// Package format turns cell and footer values into display strings.
//
// Every formatter degrades to the raw input when it cannot parse a value;
// formatting never fails.
package format

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand    = decimal.NewFromInt(1_000)
	million     = decimal.NewFromInt(1_000_000)
	scientific  = decimal.New(1, 15)
	btcDecimals = int32(4)
)

// Currency abbreviates by magnitude: 1500 is "1.50k", -1500000 is "-1.50M",
// anything of 1e15 or more is scientific ("1.00e+15"). Smaller values get
// two decimals and thousands separators.
func Currency(v decimal.Decimal) string {
	abs := v.Abs()
	switch {
	case abs.GreaterThanOrEqual(scientific):
		return sci(v)
	case abs.GreaterThanOrEqual(million):
		return v.Div(million).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(thousand):
		return v.Div(thousand).StringFixed(2) + "k"
	default:
		return groupThousands(v.StringFixed(2))
	}
}

// BTCAmount rounds to four decimals, half away from zero.
func BTCAmount(s string) string {
	d, ok := parse(s)
	if !ok {
		return s
	}
	return d.StringFixed(btcDecimals)
}

// BigNumber renders two decimals with thousands separators, switching to
// scientific notation from 1e15 up.
func BigNumber(s string) string {
	d, ok := parse(s)
	if !ok {
		return s
	}
	if d.Abs().GreaterThanOrEqual(scientific) {
		return sci(d)
	}
	return groupThousands(d.StringFixed(2))
}

// Percent renders v with the given number of decimals and a % sign.
func Percent(v decimal.Decimal, decimals int32) string {
	return v.StringFixed(decimals) + "%"
}

func parse(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	return d, err == nil
}

// sci is two-digit scientific notation. The mantissa only needs three
// significant digits, so the float64 conversion loses nothing visible.
func sci(d decimal.Decimal) string {
	return strconv.FormatFloat(d.InexactFloat64(), 'e', 2, 64)
}

// groupThousands inserts "," every three digits of the integer part of a
// plain decimal string such as "-1234567.89".
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	b.Grow(len(s) + len(s)/3 + 1)
	b.WriteString(sign)
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:min(lead, len(intPart))])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte(',')
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
