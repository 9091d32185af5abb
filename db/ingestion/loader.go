package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"solar-estimate/db/clickhouse"
)

// BenchmarkFile is the on-disk format of a cost-per-watt benchmark set.
//
//	region: CA
//	source: LBNL Tracking the Sun
//	valid_from: 2024-01-01T00:00:00Z
//	tiers:
//	  - {min_kw: 0, max_kw: 5, cost_per_watt: 3.40, confidence: 0.7}
//	  - {min_kw: 5, cost_per_watt: 3.05}
type BenchmarkFile struct {
	Region    string     `yaml:"region"`
	Alias     string     `yaml:"alias"`
	Source    string     `yaml:"source"`
	Currency  string     `yaml:"currency"`
	ValidFrom time.Time  `yaml:"valid_from"`
	ValidTo   *time.Time `yaml:"valid_to"`
	Tiers     []TierSpec `yaml:"tiers"`

	// Hash is the sha256 of the raw file content.
	Hash string `yaml:"-"`
}

// TierSpec is one size tier. A missing max_kw is unbounded.
type TierSpec struct {
	MinKW       float64  `yaml:"min_kw"`
	MaxKW       *float64 `yaml:"max_kw"`
	CostPerWatt float64  `yaml:"cost_per_watt"`
	Confidence  float64  `yaml:"confidence"`
}

const defaultTierConfidence = 0.7

// LoadFile reads and validates a benchmark file.
func LoadFile(path string) (*BenchmarkFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes benchmark YAML, applies defaults and validates tiers.
func Parse(data []byte) (*BenchmarkFile, error) {
	var f BenchmarkFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid benchmark YAML: %w", err)
	}

	f.Region = strings.ToUpper(strings.TrimSpace(f.Region))
	if f.Alias == "" {
		f.Alias = "default"
	}
	if f.Currency == "" {
		f.Currency = "USD"
	}
	for i := range f.Tiers {
		if f.Tiers[i].Confidence == 0 {
			f.Tiers[i].Confidence = defaultTierConfidence
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	f.Hash = hex.EncodeToString(sum[:])
	return &f, nil
}

// Validate checks tier bounds and prices. Tiers must not overlap.
func (f *BenchmarkFile) Validate() error {
	if f.Region == "" {
		return fmt.Errorf("region is required")
	}
	if len(f.Tiers) == 0 {
		return fmt.Errorf("at least one tier is required")
	}

	tiers := make([]TierSpec, len(f.Tiers))
	copy(tiers, f.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinKW < tiers[j].MinKW })

	for i, t := range tiers {
		if t.MinKW < 0 {
			return fmt.Errorf("tier %d: min_kw must be non-negative", i)
		}
		if t.MaxKW != nil && *t.MaxKW <= t.MinKW {
			return fmt.Errorf("tier %d: max_kw must exceed min_kw", i)
		}
		if t.CostPerWatt <= 0 {
			return fmt.Errorf("tier %d: cost_per_watt must be positive", i)
		}
		if t.Confidence < 0 || t.Confidence > 1 {
			return fmt.Errorf("tier %d: confidence must be within [0, 1]", i)
		}
		if i > 0 {
			prev := tiers[i-1]
			if prev.MaxKW == nil || *prev.MaxKW > t.MinKW {
				return fmt.Errorf("tier %d overlaps tier starting at %g kW", i, prev.MinKW)
			}
		}
	}
	return nil
}

// Benchmarks converts the file's tiers into store rows for a snapshot.
func (f *BenchmarkFile) Benchmarks(snapshot *clickhouse.BenchmarkSnapshot) []*clickhouse.CostBenchmark {
	out := make([]*clickhouse.CostBenchmark, 0, len(f.Tiers))
	for _, t := range f.Tiers {
		b := &clickhouse.CostBenchmark{
			SnapshotID:  snapshot.ID,
			Region:      f.Region,
			TierMinKW:   decimal.NewFromFloat(t.MinKW),
			CostPerWatt: decimal.NewFromFloat(t.CostPerWatt),
			Currency:    f.Currency,
			Confidence:  t.Confidence,
		}
		if t.MaxKW != nil {
			upper := decimal.NewFromFloat(*t.MaxKW)
			b.TierMaxKW = &upper
		}
		out = append(out, b)
	}
	return out
}
