// Package mockdata writes deterministic demo datasets (sales, orders,
// trades) as CSV files plus the manifest that registers them.
package mockdata

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"duck-tables/internal/dataset"
	"duck-tables/internal/engine"
)

// ManifestFile is the manifest name Generate writes next to the CSV files.
const ManifestFile = "datasets.yaml"

// namespace seeds the UUIDv5 ids so the same seed always yields the same ids.
var namespace = uuid.MustParse("6f1c9a52-4b0e-4d7e-9a53-2f3f1d0b8c11")

var (
	regions   = []string{"EU", "US", "APAC", "LATAM"}
	products  = []string{"widget", "gadget", "gizmo", "doohickey"}
	statuses  = []string{"pending", "paid", "shipped", "refunded"}
	sides     = []string{"buy", "sell"}
	customers = 40
)

// Options controls the generated data.
type Options struct {
	Seed  uint64
	Rows  int       // rows per dataset; 0 means 500
	Start time.Time // first day; zero means 2024-01-01 UTC
}

func (o Options) withDefaults() Options {
	if o.Rows <= 0 {
		o.Rows = 500
	}
	if o.Start.IsZero() {
		o.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return o
}

// Generate writes sales.csv, orders.csv, trades.csv and the manifest into
// dir and returns the manifest with absolute paths. The same Options always
// produce byte-identical files.
func Generate(dir string, opts Options) (*dataset.Manifest, error) {
	opts = opts.withDefaults()
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve mock data dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mock data dir: %w", err)
	}

	gens := []struct {
		ds  engine.Dataset
		gen func(*rand.Rand, Options) ([]string, [][]string)
	}{
		{engine.Dataset{Name: "sales", Path: "sales.csv", Format: engine.FormatCSV, Description: "Daily sales per region and product"}, sales},
		{engine.Dataset{Name: "orders", Path: "orders.csv", Format: engine.FormatCSV, Description: "Customer orders"}, orders},
		{engine.Dataset{Name: "trades", Path: "trades.csv", Format: engine.FormatCSV, Description: "BTC trades"}, trades},
	}

	m := &dataset.Manifest{}
	for i, g := range gens {
		rng := rand.New(rand.NewPCG(opts.Seed, uint64(i)))
		header, rows := g.gen(rng, opts)
		if err := writeCSV(filepath.Join(dir, g.ds.Path), header, rows); err != nil {
			return nil, err
		}
		m.Datasets = append(m.Datasets, g.ds)
	}

	path := filepath.Join(dir, ManifestFile)
	if err := m.Write(path); err != nil {
		return nil, err
	}
	return dataset.Load(path)
}

func id(seed uint64, kind string, i int) string {
	return uuid.NewSHA1(namespace, []byte(kind+"/"+strconv.FormatUint(seed, 10)+"/"+strconv.Itoa(i))).String()
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.IntN(len(from))]
}

func money(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func sales(rng *rand.Rand, opts Options) ([]string, [][]string) {
	header := []string{"id", "day", "region", "product", "units", "amount"}
	rows := make([][]string, opts.Rows)
	for i := range rows {
		day := opts.Start.AddDate(0, 0, rng.IntN(365))
		units := 1 + rng.IntN(50)
		price := int64(199 + rng.IntN(9800))
		rows[i] = []string{
			id(opts.Seed, "sales", i),
			day.Format(time.DateOnly),
			pick(rng, regions),
			pick(rng, products),
			strconv.Itoa(units),
			money(price * int64(units)),
		}
	}
	return header, rows
}

func orders(rng *rand.Rand, opts Options) ([]string, [][]string) {
	header := []string{"order_id", "customer_id", "order_date", "status", "total"}
	rows := make([][]string, opts.Rows)
	for i := range rows {
		rows[i] = []string{
			id(opts.Seed, "orders", i),
			id(opts.Seed, "customer", rng.IntN(customers)),
			opts.Start.AddDate(0, 0, rng.IntN(365)).Format(time.DateOnly),
			pick(rng, statuses),
			money(int64(500 + rng.IntN(250_000))),
		}
	}
	return header, rows
}

func trades(rng *rand.Rand, opts Options) ([]string, [][]string) {
	header := []string{"trade_id", "ts", "pair", "side", "btc_amount", "price_usd"}
	rows := make([][]string, opts.Rows)
	for i := range rows {
		ts := opts.Start.Add(time.Duration(rng.Int64N(int64(365 * 24 * time.Hour))))
		sats := 10_000 + rng.Int64N(500_000_000)
		rows[i] = []string{
			id(opts.Seed, "trades", i),
			ts.Format(time.DateTime),
			"BTC-USD",
			pick(rng, sides),
			decimal.New(sats, -8).StringFixed(8),
			money(2_000_000 + rng.Int64N(8_000_000)),
		}
	}
	return header, rows
}

func writeCSV(path string, header []string, rows [][]string) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is built from the caller's directory
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
