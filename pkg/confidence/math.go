// Package confidence provides confidence score math utilities.
package confidence

import "math"

// Base confidence for each sizing source.
const (
	ProviderConfidence = 0.95
	RoofAreaConfidence = 0.80
	UsageConfidence    = 0.60
	MinConfidence      = 0.50
)

// Decay applies uncertainty decay to a base confidence.
// Each degraded lookup reduces confidence by 10%.
func Decay(base float64, factors int) float64 {
	if factors <= 0 {
		return base
	}
	decayRate := 0.9
	return base * math.Pow(decayRate, float64(factors))
}

// AboveThreshold checks if confidence meets minimum requirement.
func AboveThreshold(score, threshold float64) bool {
	return score >= threshold
}

// Clamp ensures confidence is in valid range [0, 1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
