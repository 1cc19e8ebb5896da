package app

import (
	"context"
	"fmt"

	"duck-tables/internal/aggregation"
	"duck-tables/internal/domain"
	"duck-tables/internal/format"
	"duck-tables/internal/querybuilder"
	"duck-tables/internal/service/preset"
	"duck-tables/internal/service/table"
)

// demoPresets are saved tables over the generated mock datasets.
var demoPresets = []preset.SaveRequest{
	{
		Name:        "sales-by-region",
		Description: "Revenue and units per region",
		Request: table.Request{
			Dataset:    "sales",
			Dimensions: []string{"region"},
			Measures: []table.Measure{
				{Name: "revenue", Column: "amount", Aggregation: querybuilder.AggSum, Footer: aggregation.KindSum, Format: format.Config{Type: "currency"}},
				{Name: "units", Column: "units", Aggregation: querybuilder.AggSum, Footer: aggregation.KindSum},
			},
		},
	},
	{
		Name:        "orders-by-month",
		Description: "Paid orders per month",
		Request: table.Request{
			Dataset:  "orders",
			Segments: []table.SegmentDef{{Name: "month", Column: "order_date", Truncate: "month"}},
			Measures: []table.Measure{
				{Name: "orders", Column: "*", Aggregation: querybuilder.AggCount, Footer: aggregation.KindSum},
				{Name: "avg_total", Column: "total", Aggregation: querybuilder.AggAvg, Footer: aggregation.KindAvg},
			},
			Filters: []table.FilterDef{{Column: "status", Op: querybuilder.FilterEq, Values: []any{"paid"}}},
		},
	},
	{
		Name:        "trades-by-side",
		Description: "BTC volume per side and quarter",
		Request: table.Request{
			Dataset:    "trades",
			Dimensions: []string{"side"},
			Segments:   []table.SegmentDef{{Name: "quarter", Column: "ts", Truncate: "quarter"}},
			Measures: []table.Measure{
				{Name: "btc", Column: "btc_amount", Aggregation: querybuilder.AggSum, Footer: aggregation.KindSum},
				{Name: "max_price", Column: "price_usd", Aggregation: querybuilder.AggMax, Footer: aggregation.KindMax, Format: format.Config{Type: "currency"}},
			},
		},
	},
}

// seedPresets saves demoPresets into an empty preset store. It does nothing
// once any preset exists.
func seedPresets(ctx context.Context, svc *preset.Service) error {
	_, total, err := svc.List(ctx, "", domain.PageRequest{PageSize: 1})
	if err != nil {
		return fmt.Errorf("count presets: %w", err)
	}
	if total > 0 {
		return nil
	}
	for _, req := range demoPresets {
		if _, err := svc.Create(ctx, req); err != nil {
			return fmt.Errorf("create preset %q: %w", req.Name, err)
		}
	}
	return nil
}
