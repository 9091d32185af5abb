package estimation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "solar-estimate/pkg/errors"
)

func TestNeededPanels(t *testing.T) {
	res, err := NeededPanels(OffsetInput{
		TargetMonthlyKWh:    800,
		DailySunlightHours:  5.0,
		PanelOutputFraction: ptr(0.4),
	})
	require.NoError(t, err)
	assert.Equal(t, 13, res.NeededPanels)
	assert.InDelta(t, 5.2, res.SystemSizeKW, 1e-9)
}

func TestNeededPanels_DefaultFraction(t *testing.T) {
	res, err := NeededPanels(OffsetInput{TargetMonthlyKWh: 600, DailySunlightHours: 5})
	require.NoError(t, err)
	assert.Equal(t, 0.4, res.PanelOutputFraction)
	assert.Equal(t, 10, res.NeededPanels)
}

func TestNeededPanels_RoundsHalfAwayFromZero(t *testing.T) {
	// 75 / (1*30) / 1.0 = 2.5
	res, err := NeededPanels(OffsetInput{TargetMonthlyKWh: 75, DailySunlightHours: 1, PanelOutputFraction: ptr(1.0)})
	require.NoError(t, err)
	assert.Equal(t, 3, res.NeededPanels)
}

func TestNeededPanels_ZeroTarget(t *testing.T) {
	res, err := NeededPanels(OffsetInput{TargetMonthlyKWh: 0, DailySunlightHours: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, res.NeededPanels)
}

func TestNeededPanels_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   OffsetInput
	}{
		{"zero sunlight", OffsetInput{TargetMonthlyKWh: 800, DailySunlightHours: 0}},
		{"negative sunlight", OffsetInput{TargetMonthlyKWh: 800, DailySunlightHours: -2}},
		{"zero fraction", OffsetInput{TargetMonthlyKWh: 800, DailySunlightHours: 5, PanelOutputFraction: ptr(0.0)}},
		{"negative target", OffsetInput{TargetMonthlyKWh: -1, DailySunlightHours: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NeededPanels(tt.in)
			assert.ErrorIs(t, err, qerrors.ErrInvalidInput)
		})
	}
}
