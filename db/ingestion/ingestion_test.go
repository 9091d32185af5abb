package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-estimate/db/clickhouse"
)

const caBenchmarks = `
region: ca
source: installer survey
valid_from: 2024-01-01T00:00:00Z
tiers:
  - min_kw: 0
    max_kw: 5
    cost_per_watt: 3.40
    confidence: 0.8
  - min_kw: 5
    cost_per_watt: 3.05
`

type fakeStore struct {
	snapshots  map[uuid.UUID]*clickhouse.BenchmarkSnapshot
	benchmarks []*clickhouse.CostBenchmark
	activated  []uuid.UUID
	bulkErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[uuid.UUID]*clickhouse.BenchmarkSnapshot)}
}

func (f *fakeStore) FindSnapshotByHash(_ context.Context, region, alias, hash string) (*clickhouse.BenchmarkSnapshot, error) {
	for _, s := range f.snapshots {
		if s.Region == region && s.Alias == alias && s.Hash == hash {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateSnapshot(_ context.Context, s *clickhouse.BenchmarkSnapshot) error {
	f.snapshots[s.ID] = s
	return nil
}

func (f *fakeStore) BulkCreateBenchmarks(_ context.Context, b []*clickhouse.CostBenchmark) error {
	if f.bulkErr != nil {
		return f.bulkErr
	}
	f.benchmarks = append(f.benchmarks, b...)
	return nil
}

func (f *fakeStore) ActivateSnapshot(_ context.Context, id uuid.UUID) error {
	for _, s := range f.snapshots {
		s.IsActive = s.ID == id
	}
	f.activated = append(f.activated, id)
	return nil
}

func (f *fakeStore) GetActiveSnapshot(_ context.Context, region, alias string) (*clickhouse.BenchmarkSnapshot, error) {
	for _, s := range f.snapshots {
		if s.Region == region && s.Alias == alias && s.IsActive {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CountBenchmarks(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, b := range f.benchmarks {
		if b.SnapshotID == id {
			n++
		}
	}
	return n, nil
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(caBenchmarks))
	require.NoError(t, err)

	assert.Equal(t, "CA", f.Region)
	assert.Equal(t, "default", f.Alias)
	assert.Equal(t, "USD", f.Currency)
	assert.Len(t, f.Hash, 64)
	require.Len(t, f.Tiers, 2)
	assert.Nil(t, f.Tiers[1].MaxKW)
	assert.Equal(t, defaultTierConfidence, f.Tiers[1].Confidence)
}

func TestParse_HashIsContentAddressed(t *testing.T) {
	a, err := Parse([]byte(caBenchmarks))
	require.NoError(t, err)
	b, err := Parse([]byte(caBenchmarks))
	require.NoError(t, err)
	c, err := Parse([]byte(caBenchmarks + "\nalias: promo\n"))
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Hash, c.Hash)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing region", "tiers: [{min_kw: 0, cost_per_watt: 3}]", "region is required"},
		{"no tiers", "region: CA", "at least one tier"},
		{"negative min", "region: CA\ntiers: [{min_kw: -1, cost_per_watt: 3}]", "non-negative"},
		{"inverted bounds", "region: CA\ntiers: [{min_kw: 5, max_kw: 5, cost_per_watt: 3}]", "must exceed"},
		{"zero price", "region: CA\ntiers: [{min_kw: 0, cost_per_watt: 0}]", "must be positive"},
		{"confidence range", "region: CA\ntiers: [{min_kw: 0, cost_per_watt: 3, confidence: 1.5}]", "confidence"},
		{"overlap", "region: CA\ntiers: [{min_kw: 0, max_kw: 10, cost_per_watt: 3}, {min_kw: 5, cost_per_watt: 2.8}]", "overlaps"},
		{"unbounded then more", "region: CA\ntiers: [{min_kw: 0, cost_per_watt: 3}, {min_kw: 5, cost_per_watt: 2.8}]", "overlaps"},
		{"bad yaml", "region: [", "invalid benchmark YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.yaml")
	require.NoError(t, os.WriteFile(path, []byte(caBenchmarks), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "CA", f.Region)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIngest(t *testing.T) {
	store := newFakeStore()
	adapter := NewClickHouseAdapter(store)
	f, err := Parse([]byte(caBenchmarks))
	require.NoError(t, err)

	res, err := adapter.Ingest(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 2, res.BenchmarkCount)
	assert.Equal(t, []uuid.UUID{res.SnapshotID}, store.activated)

	require.Len(t, store.benchmarks, 2)
	assert.Equal(t, res.SnapshotID, store.benchmarks[0].SnapshotID)
	assert.True(t, store.benchmarks[0].CostPerWatt.Equal(decimal.RequireFromString("3.4")))
	require.NotNil(t, store.benchmarks[0].TierMaxKW)
	assert.Nil(t, store.benchmarks[1].TierMaxKW)

	stats, err := adapter.GetIngestionStats(context.Background(), "CA", "default")
	require.NoError(t, err)
	assert.True(t, stats.IsActive)
	assert.Equal(t, 2, stats.BenchmarkCount)
}

func TestIngest_SkipsDuplicate(t *testing.T) {
	store := newFakeStore()
	adapter := NewClickHouseAdapter(store)
	f, err := Parse([]byte(caBenchmarks))
	require.NoError(t, err)

	first, err := adapter.Ingest(context.Background(), f)
	require.NoError(t, err)
	second, err := adapter.Ingest(context.Background(), f)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.SnapshotID, second.SnapshotID)
	assert.Len(t, store.benchmarks, 2)
	assert.Len(t, store.activated, 1)
}

func TestIngest_InsertFailureLeavesSnapshotInactive(t *testing.T) {
	store := newFakeStore()
	store.bulkErr = errors.New("connection reset")
	adapter := NewClickHouseAdapter(store)
	f, err := Parse([]byte(caBenchmarks))
	require.NoError(t, err)

	res, err := adapter.Ingest(context.Background(), f)
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "failed to insert benchmarks")
	assert.Empty(t, store.activated)

	stats, err := adapter.GetIngestionStats(context.Background(), "CA", "default")
	require.NoError(t, err)
	assert.False(t, stats.IsActive)
}
