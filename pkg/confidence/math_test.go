package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecay(t *testing.T) {
	assert.Equal(t, RoofAreaConfidence, Decay(RoofAreaConfidence, 0))
	assert.InDelta(t, 0.72, Decay(RoofAreaConfidence, 1), 1e-9)
	assert.InDelta(t, 0.648, Decay(RoofAreaConfidence, 2), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.2))
	assert.Equal(t, 1.0, Clamp(1.3))
	assert.Equal(t, 0.6, Clamp(0.6))
	assert.True(t, AboveThreshold(UsageConfidence, MinConfidence))
}
