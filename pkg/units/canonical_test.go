package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversions(t *testing.T) {
	assert.Equal(t, 0.4, WattsToKW(400))
	assert.Equal(t, 22857.0, KWToWatts(22.857))
	assert.InDelta(t, 1.0, SqFtToM2(SqFtPerM2), 1e-12)
	assert.InDelta(t, 107.639, M2ToSqFt(10), 1e-3)
	assert.Equal(t, 150.0, DailyToMonthly(5, 30))
	assert.Equal(t, 240, YearsToMonths(20))
}

func TestAnnualToDaily(t *testing.T) {
	assert.InDelta(t, 4.0, AnnualToDaily(1460, 365), 1e-12)
	assert.Equal(t, 0.0, AnnualToDaily(1460, 0))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 22.86, Round2(22.857142857))
	assert.Equal(t, 63.26, Round2(63.2649))
	assert.Equal(t, 0.0, Round2(0.004))
}
