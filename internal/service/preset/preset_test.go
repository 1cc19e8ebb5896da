package preset

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-tables/internal/db"
	"duck-tables/internal/domain"
	"duck-tables/internal/engine"
	"duck-tables/internal/repository"
	"duck-tables/internal/service/table"
)

func setup(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	eng, err := engine.Open(ctx, engine.Options{}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("region,amount\nEU,1.25\nUS,2.20\nEU,3.50\nAPAC,4\n"), 0o644))
	require.NoError(t, eng.RegisterDataset(ctx, engine.Dataset{Name: "sales", Path: path}))

	repo := repository.NewPresetRepo(db.OpenTestMetastore(t))
	return NewService(repo, table.NewService(eng, logger), logger)
}

func byRegion() SaveRequest {
	return SaveRequest{
		Name: "by-region",
		Request: table.Request{
			Dataset:    "sales",
			Dimensions: []string{"region"},
			Measures:   []table.Measure{{Column: "amount", Aggregation: "sum", Footer: "sum"}},
		},
	}
}

func TestService_CreateAndRun(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, byRegion())
	require.NoError(t, err)
	assert.Equal(t, "sales", created.Dataset)

	got, err := svc.Get(ctx, "by-region")
	require.NoError(t, err)
	assert.Equal(t, []string{"region"}, got.Table.Dimensions)
	assert.Equal(t, "sum", string(got.Table.Measures[0].Footer))

	page, err := svc.Run(ctx, "by-region", domain.PageRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalRows)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "APAC", page.Rows[0]["region"])
	assert.Equal(t, "8.75", page.Footers[0].Value.Decimal.String())

	page, err = svc.Run(ctx, "by-region", domain.PageRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "US", page.Rows[0]["region"])
}

func TestService_CreateValidates(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	var verr *domain.ValidationError

	bad := byRegion()
	bad.Name = "Has Spaces"
	_, err := svc.Create(ctx, bad)
	assert.True(t, errors.As(err, &verr))

	bad = byRegion()
	bad.Request.Measures[0].Aggregation = "median"
	_, err = svc.Create(ctx, bad)
	assert.True(t, errors.As(err, &verr))

	_, _, err = svc.List(ctx, "", domain.PageRequest{})
	require.NoError(t, err)
}

func TestService_UpdateListDelete(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, byRegion())
	require.NoError(t, err)

	upd := byRegion()
	upd.Description = "counts"
	upd.Request.Measures = []table.Measure{{Name: "n", Column: "*", Aggregation: "count"}}
	_, err = svc.Update(ctx, upd)
	require.NoError(t, err)

	page, err := svc.Run(ctx, "by-region", domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, "2.00", page.Display[1]["n"])

	list, total, err := svc.List(ctx, "sales", domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "counts", list[0].Description)

	require.NoError(t, svc.Delete(ctx, "by-region"))
	_, err = svc.Run(ctx, "by-region", domain.PageRequest{})
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf))
}
