package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"duck-tables/internal/domain"
)

// Spec selects a formatter. The set of implementations is closed: only the
// types in this file satisfy it.
type Spec interface {
	isSpec()
}

// CurrencySpec formats with Currency.
type CurrencySpec struct{}

// PercentageSpec formats a value that is already a percentage.
type PercentageSpec struct {
	Decimals int32
}

// TimeSpec formats timestamps with Layout in Location. A nil Location is UTC.
type TimeSpec struct {
	Layout   string
	Location *time.Location
}

// DefaultSpec formats with BigNumber.
type DefaultSpec struct{}

func (CurrencySpec) isSpec()   {}
func (PercentageSpec) isSpec() {}
func (TimeSpec) isSpec()       {}
func (DefaultSpec) isSpec()    {}

// DefaultTimeLayout is used by TimeSpec when Layout is empty.
const DefaultTimeLayout = "2006-01-02 15:04"

// Formatter renders a single value.
type Formatter func(value any) string

// New returns the formatter for spec. A nil spec is DefaultSpec.
func New(spec Spec) Formatter {
	switch s := spec.(type) {
	case CurrencySpec:
		return func(v any) string {
			d, ok := parse(Text(v))
			if !ok {
				return Text(v)
			}
			return Currency(d)
		}
	case PercentageSpec:
		return func(v any) string {
			d, ok := parse(Text(v))
			if !ok {
				return Text(v)
			}
			return Percent(d, s.Decimals)
		}
	case TimeSpec:
		layout, loc := s.Layout, s.Location
		if layout == "" {
			layout = DefaultTimeLayout
		}
		if loc == nil {
			loc = time.UTC
		}
		return func(v any) string {
			t, ok := toTime(v)
			if !ok {
				return Text(v)
			}
			return t.In(loc).Format(layout)
		}
	case DefaultSpec, nil:
		return func(v any) string {
			return BigNumber(Text(v))
		}
	default:
		panic(fmt.Sprintf("format: unhandled spec %T", spec))
	}
}

// Config is the serialisable form of a Spec, as it appears in table
// requests and presets.
type Config struct {
	Type     string `json:"type" yaml:"type"`
	Decimals *int32 `json:"decimals,omitempty" yaml:"decimals,omitempty"`
	Layout   string `json:"layout,omitempty" yaml:"layout,omitempty"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Spec validates c and converts it. An empty type is DefaultSpec.
func (c Config) Spec() (Spec, error) {
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case "", "default", "number":
		return DefaultSpec{}, nil
	case "currency":
		return CurrencySpec{}, nil
	case "percentage", "percent":
		decimals := int32(2)
		if c.Decimals != nil {
			if *c.Decimals < 0 || *c.Decimals > 10 {
				return nil, domain.ErrValidation("percentage decimals must be between 0 and 10, got %d", *c.Decimals)
			}
			decimals = *c.Decimals
		}
		return PercentageSpec{Decimals: decimals}, nil
	case "time":
		spec := TimeSpec{Layout: c.Layout}
		if c.Timezone != "" {
			loc, err := time.LoadLocation(c.Timezone)
			if err != nil {
				return nil, domain.ErrValidation("unknown timezone %q", c.Timezone)
			}
			spec.Location = loc
		}
		return spec, nil
	default:
		return nil, domain.ErrValidation("unknown format type %q", c.Type)
	}
}

// Text is the plain string form of a cell value. Dates at midnight UTC drop
// their clock.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case decimal.Decimal:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		if x.Location() == time.UTC && x.Equal(x.Truncate(24*time.Hour)) {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	default:
		return fmt.Sprint(v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case int64:
		return time.Unix(x, 0), true
	case int:
		return time.Unix(int64(x), 0), true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0), true
		}
	}
	return time.Time{}, false
}
