package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-tables/internal/domain"
	"duck-tables/internal/engine"
	"duck-tables/internal/mockdata"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type countingRegistrar struct {
	mu    sync.Mutex
	names []string
}

func (c *countingRegistrar) RegisterDataset(_ context.Context, ds engine.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, ds.Name)
	return nil
}

func TestRefresher_Refresh(t *testing.T) {
	reg := &countingRegistrar{}
	r := NewRefresher(t.TempDir(), mockdata.Options{Seed: 7, Rows: 10}, reg, discardLogger())
	assert.True(t, r.LastRefresh().IsZero())

	m, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, m.Datasets, 3)
	assert.Equal(t, uint64(1), r.Generation())
	assert.False(t, r.LastRefresh().IsZero())

	_, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.Generation())
	assert.ElementsMatch(t, []string{"sales", "orders", "trades", "sales", "orders", "trades"}, reg.names)
}

func TestRefresher_RealEngine(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.Open(ctx, engine.Options{}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	r := NewRefresher(t.TempDir(), mockdata.Options{Seed: 1, Rows: 25}, eng, discardLogger())
	_, err = r.Refresh(ctx)
	require.NoError(t, err)

	first, err := eng.Query(ctx, `SELECT "id" FROM "sales" ORDER BY "id" LIMIT 1`)
	require.NoError(t, err)

	_, err = r.Refresh(ctx)
	require.NoError(t, err)
	second, err := eng.Query(ctx, `SELECT "id" FROM "sales" ORDER BY "id" LIMIT 1`)
	require.NoError(t, err)

	assert.NotEqual(t, first.Rows[0]["id"], second.Rows[0]["id"], "each generation uses a new seed")

	count, err := eng.Query(ctx, `SELECT COUNT(*) AS n FROM "orders"`)
	require.NoError(t, err)
	assert.EqualValues(t, 25, count.Rows[0]["n"])
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name      string
		schedule  string
		wantErr   bool
		wantEntry bool
	}{
		{name: "standard cron", schedule: "*/5 * * * *", wantEntry: true},
		{name: "descriptor", schedule: "@every 1h", wantEntry: true},
		{name: "empty schedules nothing", schedule: ""},
		{name: "invalid", schedule: "every tuesday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRefresher(t.TempDir(), mockdata.Options{Rows: 1}, &countingRegistrar{}, discardLogger())
			s := NewScheduler(r, discardLogger())

			err := s.Start(context.Background(), tt.schedule)
			if tt.wantErr {
				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr), "got %v", err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(s.Stop)

			if tt.wantEntry {
				assert.NotZero(t, s.entry)
				assert.False(t, s.Next().IsZero())
			} else {
				assert.Zero(t, s.entry)
				assert.True(t, s.Next().IsZero())
			}
		})
	}
}

func TestScheduler_Reschedule(t *testing.T) {
	r := NewRefresher(t.TempDir(), mockdata.Options{Rows: 1}, &countingRegistrar{}, discardLogger())
	s := NewScheduler(r, discardLogger())
	require.NoError(t, s.Start(context.Background(), "@every 1h"))
	t.Cleanup(s.Stop)

	first := s.entry
	require.NoError(t, s.Reschedule("@daily"))
	assert.NotEqual(t, first, s.entry)
	assert.Len(t, s.cron.Entries(), 1)

	require.Error(t, s.Reschedule("nonsense"))
	assert.Len(t, s.cron.Entries(), 1, "a rejected schedule keeps the old one")

	require.NoError(t, s.Reschedule(""))
	assert.Empty(t, s.cron.Entries())
}

func TestScheduler_RunRefreshes(t *testing.T) {
	reg := &countingRegistrar{}
	r := NewRefresher(t.TempDir(), mockdata.Options{Rows: 1}, reg, discardLogger())
	s := NewScheduler(r, discardLogger())

	s.run()
	assert.Equal(t, uint64(1), r.Generation())
	assert.Len(t, reg.names, 3)
}
