// Package ingestion loads cost-per-watt benchmark files into the ClickHouse store.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"solar-estimate/db/clickhouse"
)

// SnapshotWriter is the subset of clickhouse.Store used by ingestion.
type SnapshotWriter interface {
	FindSnapshotByHash(ctx context.Context, region, alias, hash string) (*clickhouse.BenchmarkSnapshot, error)
	CreateSnapshot(ctx context.Context, snapshot *clickhouse.BenchmarkSnapshot) error
	BulkCreateBenchmarks(ctx context.Context, benchmarks []*clickhouse.CostBenchmark) error
	ActivateSnapshot(ctx context.Context, id uuid.UUID) error
	GetActiveSnapshot(ctx context.Context, region, alias string) (*clickhouse.BenchmarkSnapshot, error)
	CountBenchmarks(ctx context.Context, snapshotID uuid.UUID) (int, error)
}

// ClickHouseAdapter writes benchmark files to the store as snapshots
type ClickHouseAdapter struct {
	store SnapshotWriter
	now   func() time.Time
}

// NewClickHouseAdapter creates a new ClickHouse adapter
func NewClickHouseAdapter(store SnapshotWriter) *ClickHouseAdapter {
	return &ClickHouseAdapter{store: store, now: time.Now}
}

// IngestionResult tracks the result of a benchmark ingestion
type IngestionResult struct {
	SnapshotID     uuid.UUID     `json:"snapshot_id"`
	Region         string        `json:"region"`
	Alias          string        `json:"alias"`
	BenchmarkCount int           `json:"benchmark_count"`
	Duplicate      bool          `json:"duplicate"`
	Duration       time.Duration `json:"duration"`
	Success        bool          `json:"success"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}

// Ingest stores a benchmark file as a new snapshot and activates it.
// A file whose hash matches an existing snapshot is skipped.
func (a *ClickHouseAdapter) Ingest(ctx context.Context, file *BenchmarkFile) (*IngestionResult, error) {
	startTime := a.now()
	result := &IngestionResult{
		Region: file.Region,
		Alias:  file.Alias,
	}

	existing, err := a.store.FindSnapshotByHash(ctx, file.Region, file.Alias, file.Hash)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("failed to check for duplicate snapshot: %v", err)
		return result, err
	}
	if existing != nil {
		log.Info().
			Str("region", file.Region).
			Str("snapshot_id", existing.ID.String()).
			Msg("benchmark file already ingested")
		result.SnapshotID = existing.ID
		result.Duplicate = true
		result.Success = true
		return result, nil
	}

	snapshot := &clickhouse.BenchmarkSnapshot{
		ID:        uuid.New(),
		Region:    file.Region,
		Alias:     file.Alias,
		Source:    file.Source,
		FetchedAt: a.now(),
		ValidFrom: file.ValidFrom,
		ValidTo:   file.ValidTo,
		Hash:      file.Hash,
		Version:   "1.0",
		IsActive:  false, // activated after all tiers are written
	}
	if snapshot.ValidFrom.IsZero() {
		snapshot.ValidFrom = snapshot.FetchedAt
	}

	if err := a.store.CreateSnapshot(ctx, snapshot); err != nil {
		result.ErrorMessage = fmt.Sprintf("failed to create snapshot: %v", err)
		return result, err
	}
	result.SnapshotID = snapshot.ID

	benchmarks := file.Benchmarks(snapshot)
	if err := a.store.BulkCreateBenchmarks(ctx, benchmarks); err != nil {
		result.ErrorMessage = fmt.Sprintf("failed to insert benchmarks: %v", err)
		return result, err
	}
	result.BenchmarkCount = len(benchmarks)

	if err := a.store.ActivateSnapshot(ctx, snapshot.ID); err != nil {
		result.ErrorMessage = fmt.Sprintf("failed to activate snapshot: %v", err)
		return result, err
	}

	result.Success = true
	result.Duration = a.now().Sub(startTime)
	log.Info().
		Str("region", file.Region).
		Str("snapshot_id", snapshot.ID.String()).
		Int("tiers", result.BenchmarkCount).
		Msg("benchmark snapshot activated")

	return result, nil
}

// IngestFile loads a benchmark file from disk and ingests it.
func (a *ClickHouseAdapter) IngestFile(ctx context.Context, path string) (*IngestionResult, error) {
	file, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return a.Ingest(ctx, file)
}

// IngestionStats describes the active snapshot of a region/alias
type IngestionStats struct {
	Region           string    `json:"region"`
	Alias            string    `json:"alias"`
	ActiveSnapshotID uuid.UUID `json:"active_snapshot_id"`
	LastUpdated      time.Time `json:"last_updated"`
	IsActive         bool      `json:"is_active"`
	BenchmarkCount   int       `json:"benchmark_count"`
}

// GetIngestionStats returns statistics about the active benchmark snapshot
func (a *ClickHouseAdapter) GetIngestionStats(ctx context.Context, region, alias string) (*IngestionStats, error) {
	stats := &IngestionStats{Region: region, Alias: alias}

	snapshot, err := a.store.GetActiveSnapshot(ctx, region, alias)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return stats, nil
	}

	stats.ActiveSnapshotID = snapshot.ID
	stats.LastUpdated = snapshot.FetchedAt
	stats.IsActive = true

	count, err := a.store.CountBenchmarks(ctx, snapshot.ID)
	if err != nil {
		return nil, err
	}
	stats.BenchmarkCount = count
	return stats, nil
}
