package boltdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forscht/relock/internal/bench"
	dp "github.com/forscht/relock/internal/dataprovider"
)

func newProvider(t *testing.T) dp.DataProvider {
	t.Helper()
	provider := New(&Config{DbPath: filepath.Join(t.TempDir(), "relock.db")})
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func newReport(id int64) *bench.Report {
	return &bench.Report{
		ID:         snowflake.ID(id),
		Stack:      []string{"keyed", "rw", "mutex"},
		Workers:    4,
		Ops:        100,
		Reads:      60,
		Writes:     40,
		MaxReaders: 3,
		Keys:       3,
		StartedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Elapsed:    25 * time.Millisecond,
	}
}

func TestProvider_SaveGet(t *testing.T) {
	provider := newProvider(t)
	report := newReport(42)

	require.NoError(t, provider.Save(report))
	require.ErrorIs(t, provider.Save(report), dp.ErrExist)

	got, err := provider.Get(report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, report.Stack, got.Stack)
	assert.Equal(t, report.Reads, got.Reads)
	assert.Equal(t, report.Elapsed, got.Elapsed)
	assert.True(t, report.StartedAt.Equal(got.StartedAt))

	_, err = provider.Get(7)
	require.ErrorIs(t, err, dp.ErrNotExist)
}

func TestProvider_List(t *testing.T) {
	provider := newProvider(t)

	// 256 sorts before 3 as a decimal string but after it as a big-endian key.
	for _, id := range []int64{3, 256, 1, 70000} {
		require.NoError(t, provider.Save(newReport(id)))
	}

	tt := []struct {
		name     string
		limit    int
		offset   int
		expected []snowflake.ID
	}{
		{name: "All newest first", expected: []snowflake.ID{70000, 256, 3, 1}},
		{name: "Limit", limit: 2, expected: []snowflake.ID{70000, 256}},
		{name: "Offset", limit: 2, offset: 2, expected: []snowflake.ID{3, 1}},
		{name: "Past the end", limit: 2, offset: 10, expected: []snowflake.ID{}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			reports, err := provider.List(tc.limit, tc.offset)
			require.NoError(t, err)
			ids := make([]snowflake.ID, 0, len(reports))
			for _, r := range reports {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tc.expected, ids)
		})
	}
}

func TestProvider_Delete(t *testing.T) {
	provider := newProvider(t)
	require.NoError(t, provider.Save(newReport(1)))

	require.NoError(t, provider.Delete(1))
	require.ErrorIs(t, provider.Delete(1), dp.ErrNotExist)

	_, err := provider.Get(1)
	require.ErrorIs(t, err, dp.ErrNotExist)
}

func TestFacade(t *testing.T) {
	dp.Load(newProvider(t))
	require.Equal(t, "boltdb", dp.Name())

	report := newReport(9)
	require.NoError(t, dp.Save(report))

	got, err := dp.Get(report.ID)
	require.NoError(t, err)
	require.Equal(t, report.ID, got.ID)

	reports, err := dp.List(10, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	require.NoError(t, dp.Delete(report.ID))
	_, err = dp.Get(report.ID)
	require.ErrorIs(t, err, dp.ErrNotExist)
}
