// Package clickhouse provides the ClickHouse-backed cost-per-watt benchmark store.
// Benchmarks are versioned in snapshots so a quote can always name the
// price list it was computed from.
package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NationalRegion is the fallback region when no regional benchmark exists.
const NationalRegion = "US"

// BenchmarkSnapshot represents a point-in-time capture of installed-cost benchmarks
type BenchmarkSnapshot struct {
	ID        uuid.UUID  `ch:"id" json:"id"`
	Region    string     `ch:"region" json:"region"`
	Alias     string     `ch:"alias" json:"alias"`
	Source    string     `ch:"source" json:"source"`
	FetchedAt time.Time  `ch:"fetched_at" json:"fetched_at"`
	ValidFrom time.Time  `ch:"valid_from" json:"valid_from"`
	ValidTo   *time.Time `ch:"valid_to" json:"valid_to,omitempty"`
	Hash      string     `ch:"hash" json:"hash"`
	Version   string     `ch:"version" json:"version"`
	IsActive  bool       `ch:"is_active" json:"is_active"`
	CreatedAt time.Time  `ch:"created_at" json:"created_at"`
}

// CostBenchmark is an installed $/W price for one system-size tier.
// TierMaxKW nil means unbounded.
type CostBenchmark struct {
	ID          uuid.UUID        `ch:"id"`
	SnapshotID  uuid.UUID        `ch:"snapshot_id"`
	Region      string           `ch:"region"`
	TierMinKW   decimal.Decimal  `ch:"tier_min_kw"`
	TierMaxKW   *decimal.Decimal `ch:"tier_max_kw"`
	CostPerWatt decimal.Decimal  `ch:"cost_per_watt"`
	Currency    string           `ch:"currency"`
	Confidence  float64          `ch:"confidence"`
	CreatedAt   time.Time        `ch:"created_at"`
}

// ResolvedBenchmark is the result of a benchmark lookup
type ResolvedBenchmark struct {
	CostPerWatt decimal.Decimal  `json:"cost_per_watt"`
	Currency    string           `json:"currency"`
	Confidence  float64          `json:"confidence"`
	Region      string           `json:"region"`
	TierMinKW   decimal.Decimal  `json:"tier_min_kw"`
	TierMaxKW   *decimal.Decimal `json:"tier_max_kw,omitempty"`
	SnapshotID  uuid.UUID        `json:"snapshot_id"`
	Source      string           `json:"source"`
}

// Config holds ClickHouse connection configuration
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Alias    string `yaml:"alias"`
	Debug    bool   `yaml:"debug"`
}

// DefaultConfig returns default development configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "solarquote",
		Username: "default",
		Password: "",
		Alias:    "default",
		Debug:    false,
	}
}

// Store implements BenchmarkSource using ClickHouse
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore creates a new ClickHouse benchmark store
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if cfg.Alias == "" {
		cfg.Alias = "default"
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Alias is the snapshot alias used for lookups.
func (s *Store) Alias() string {
	return s.cfg.Alias
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS benchmark_snapshots (
		id UUID,
		region LowCardinality(String),
		alias LowCardinality(String),
		source String,
		fetched_at DateTime,
		valid_from DateTime,
		valid_to Nullable(DateTime),
		hash String,
		version String,
		is_active UInt8,
		created_at DateTime,
		_version UInt64 DEFAULT 1,
		_deleted UInt8 DEFAULT 0
	) ENGINE = ReplacingMergeTree(_version)
	ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS cost_benchmarks (
		id UUID,
		snapshot_id UUID,
		region LowCardinality(String),
		tier_min_kw Decimal(12, 3),
		tier_max_kw Nullable(Decimal(12, 3)),
		cost_per_watt Decimal(10, 4),
		currency LowCardinality(String),
		confidence Float64,
		created_at DateTime,
		_version UInt64 DEFAULT 1,
		_deleted UInt8 DEFAULT 0
	) ENGINE = ReplacingMergeTree(_version)
	ORDER BY (snapshot_id, region, tier_min_kw, id)`,
}

// Migrate creates the benchmark tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, ddl := range schema {
		if err := s.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// =============================================================================
// SNAPSHOT OPERATIONS
// =============================================================================

const snapshotColumns = `id, region, alias, source, fetched_at,
	valid_from, valid_to, hash, version, is_active, created_at`

// CreateSnapshot inserts a new benchmark snapshot
func (s *Store) CreateSnapshot(ctx context.Context, snapshot *BenchmarkSnapshot) error {
	query := `
		INSERT INTO benchmark_snapshots (` + snapshotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	snapshot.CreatedAt = time.Now()
	return s.conn.Exec(ctx, query,
		snapshot.ID,
		snapshot.Region,
		snapshot.Alias,
		snapshot.Source,
		snapshot.FetchedAt,
		snapshot.ValidFrom,
		snapshot.ValidTo,
		snapshot.Hash,
		snapshot.Version,
		boolToUInt8(snapshot.IsActive),
		snapshot.CreatedAt,
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*BenchmarkSnapshot, error) {
	var snapshot BenchmarkSnapshot
	var isActive uint8
	err := row.Scan(
		&snapshot.ID, &snapshot.Region, &snapshot.Alias, &snapshot.Source,
		&snapshot.FetchedAt, &snapshot.ValidFrom, &snapshot.ValidTo,
		&snapshot.Hash, &snapshot.Version, &isActive, &snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	snapshot.IsActive = isActive == 1
	return &snapshot, nil
}

// GetSnapshot retrieves a snapshot by ID. A missing snapshot returns nil, nil.
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*BenchmarkSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM benchmark_snapshots FINAL
		WHERE id = ? AND _deleted = 0
	`
	snapshot, err := scanSnapshot(s.conn.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snapshot, nil
}

// GetActiveSnapshot retrieves the active snapshot for a region/alias
func (s *Store) GetActiveSnapshot(ctx context.Context, region, alias string) (*BenchmarkSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM benchmark_snapshots FINAL
		WHERE region = ? AND alias = ? AND is_active = 1 AND _deleted = 0
		LIMIT 1
	`
	snapshot, err := scanSnapshot(s.conn.QueryRow(ctx, query, region, alias))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active snapshot: %w", err)
	}
	return snapshot, nil
}

// ActivateSnapshot marks a snapshot active and deactivates the others for
// the same region/alias.
func (s *Store) ActivateSnapshot(ctx context.Context, id uuid.UUID) error {
	snapshot, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return fmt.Errorf("snapshot not found: %s", id)
	}

	deactivateQuery := `
		INSERT INTO benchmark_snapshots
		SELECT id, region, alias, source, fetched_at,
			   valid_from, valid_to, hash, version, 0 as is_active, created_at,
			   _version + 1 as _version, _deleted
		FROM benchmark_snapshots FINAL
		WHERE region = ? AND alias = ? AND is_active = 1 AND _deleted = 0 AND id != ?
	`
	if err := s.conn.Exec(ctx, deactivateQuery, snapshot.Region, snapshot.Alias, id); err != nil {
		return fmt.Errorf("failed to deactivate snapshots: %w", err)
	}

	activateQuery := `
		INSERT INTO benchmark_snapshots
		SELECT id, region, alias, source, fetched_at,
			   valid_from, valid_to, hash, version, 1 as is_active, created_at,
			   _version + 1 as _version, _deleted
		FROM benchmark_snapshots FINAL
		WHERE id = ?
	`
	return s.conn.Exec(ctx, activateQuery, id)
}

// ListSnapshots lists snapshots for a region, newest first. An empty region lists all.
func (s *Store) ListSnapshots(ctx context.Context, region string) ([]*BenchmarkSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM benchmark_snapshots FINAL
		WHERE (? = '' OR region = ?) AND _deleted = 0
		ORDER BY created_at DESC
	`
	rows, err := s.conn.Query(ctx, query, region, region)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*BenchmarkSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// FindSnapshotByHash finds a snapshot by its content hash
func (s *Store) FindSnapshotByHash(ctx context.Context, region, alias, hash string) (*BenchmarkSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM benchmark_snapshots FINAL
		WHERE region = ? AND alias = ? AND hash = ? AND _deleted = 0
		LIMIT 1
	`
	snapshot, err := scanSnapshot(s.conn.QueryRow(ctx, query, region, alias, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find snapshot by hash: %w", err)
	}
	return snapshot, nil
}

// CountBenchmarks returns the number of tiers in a snapshot
func (s *Store) CountBenchmarks(ctx context.Context, snapshotID uuid.UUID) (int, error) {
	query := `SELECT count() FROM cost_benchmarks FINAL WHERE snapshot_id = ? AND _deleted = 0`
	row := s.conn.QueryRow(ctx, query, snapshotID)
	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count benchmarks: %w", err)
	}
	return int(count), nil
}

// =============================================================================
// BENCHMARK OPERATIONS
// =============================================================================

// BulkCreateBenchmarks inserts benchmark tiers using a batch insert
func (s *Store) BulkCreateBenchmarks(ctx context.Context, benchmarks []*CostBenchmark) error {
	if len(benchmarks) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO cost_benchmarks (
			id, snapshot_id, region, tier_min_kw, tier_max_kw,
			cost_per_watt, currency, confidence, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now()
	for _, b := range benchmarks {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.CreatedAt = now
		if err := batch.Append(
			b.ID, b.SnapshotID, b.Region, b.TierMinKW, b.TierMaxKW,
			b.CostPerWatt, b.Currency, b.Confidence, b.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// ResolveCostPerWatt returns the active benchmark for the tier containing
// systemKW in region, falling back to the national snapshot. No match
// returns nil, nil.
func (s *Store) ResolveCostPerWatt(ctx context.Context, region string, systemKW float64) (*ResolvedBenchmark, error) {
	regions := []string{region}
	if region != NationalRegion {
		regions = append(regions, NationalRegion)
	}
	for _, r := range regions {
		if r == "" {
			continue
		}
		b, err := s.resolveInRegion(ctx, r, systemKW)
		if err != nil || b != nil {
			return b, err
		}
	}
	return nil, nil
}

func (s *Store) resolveInRegion(ctx context.Context, region string, systemKW float64) (*ResolvedBenchmark, error) {
	query := `
		SELECT cb.cost_per_watt, cb.currency, cb.confidence, cb.tier_min_kw, cb.tier_max_kw, cb.snapshot_id, bs.source
		FROM cost_benchmarks cb FINAL
		JOIN benchmark_snapshots bs FINAL ON cb.snapshot_id = bs.id
		WHERE bs.region = ? AND bs.alias = ? AND bs.is_active = 1
		  AND cb.region = ?
		  AND cb.tier_min_kw <= ? AND (cb.tier_max_kw IS NULL OR cb.tier_max_kw > ?)
		  AND bs._deleted = 0 AND cb._deleted = 0
		ORDER BY cb.tier_min_kw DESC
		LIMIT 1
	`
	kw := decimal.NewFromFloat(systemKW)
	row := s.conn.QueryRow(ctx, query, region, s.cfg.Alias, region, kw, kw)

	b := ResolvedBenchmark{Region: region}
	if err := row.Scan(&b.CostPerWatt, &b.Currency, &b.Confidence, &b.TierMinKW, &b.TierMaxKW, &b.SnapshotID, &b.Source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve benchmark: %w", err)
	}
	return &b, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
