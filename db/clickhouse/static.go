package clickhouse

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StaticSource is the Source value reported for built-in benchmarks.
const StaticSource = "static"

// StaticBenchmarks resolves cost per watt from an in-memory table.
// Used when no ClickHouse store is configured.
type StaticBenchmarks struct {
	byRegion map[string][]*CostBenchmark
}

// NewStaticBenchmarks builds a static source from benchmark tiers.
func NewStaticBenchmarks(benchmarks []*CostBenchmark) *StaticBenchmarks {
	s := &StaticBenchmarks{byRegion: make(map[string][]*CostBenchmark)}
	for _, b := range benchmarks {
		s.byRegion[b.Region] = append(s.byRegion[b.Region], b)
	}
	return s
}

// DefaultStaticBenchmarks returns national residential tiers. Smaller
// systems carry higher fixed costs per watt.
func DefaultStaticBenchmarks() *StaticBenchmarks {
	return NewStaticBenchmarks([]*CostBenchmark{
		tier(NationalRegion, "0", "5", "3.40", 0.6),
		tier(NationalRegion, "5", "15", "3.00", 0.7),
		tier(NationalRegion, "15", "", "2.75", 0.6),
	})
}

func tier(region, minKW, maxKW, cpw string, confidence float64) *CostBenchmark {
	b := &CostBenchmark{
		Region:      region,
		TierMinKW:   decimal.RequireFromString(minKW),
		CostPerWatt: decimal.RequireFromString(cpw),
		Currency:    "USD",
		Confidence:  confidence,
	}
	if maxKW != "" {
		upper := decimal.RequireFromString(maxKW)
		b.TierMaxKW = &upper
	}
	return b
}

// ResolveCostPerWatt implements the same lookup as Store.ResolveCostPerWatt.
func (s *StaticBenchmarks) ResolveCostPerWatt(_ context.Context, region string, systemKW float64) (*ResolvedBenchmark, error) {
	for _, r := range []string{region, NationalRegion} {
		if b := SelectTier(s.byRegion[r], systemKW); b != nil {
			return &ResolvedBenchmark{
				CostPerWatt: b.CostPerWatt,
				Currency:    b.Currency,
				Confidence:  b.Confidence,
				Region:      b.Region,
				TierMinKW:   b.TierMinKW,
				TierMaxKW:   b.TierMaxKW,
				SnapshotID:  uuid.Nil,
				Source:      StaticSource,
			}, nil
		}
	}
	return nil, nil
}

// SelectTier picks the tier with the highest minimum that contains systemKW.
// Bounds are [min, max); a nil max is unbounded.
func SelectTier(tiers []*CostBenchmark, systemKW float64) *CostBenchmark {
	kw := decimal.NewFromFloat(systemKW)
	sorted := make([]*CostBenchmark, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TierMinKW.GreaterThan(sorted[j].TierMinKW)
	})
	for _, t := range sorted {
		if t.TierMinKW.GreaterThan(kw) {
			continue
		}
		if t.TierMaxKW != nil && !t.TierMaxKW.GreaterThan(kw) {
			continue
		}
		return t
	}
	return nil
}
