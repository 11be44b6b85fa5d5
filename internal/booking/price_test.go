package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputePrice(t *testing.T) {
	day0 := time.Date(2026, 7, 1, 14, 0, 0, 0, time.UTC)

	p := ComputePrice(100, day0, day0.AddDate(0, 0, 3))
	assert.Equal(t, 3, p.Nights)
	assert.InDelta(t, 300.0, p.Base, 1e-9)
	assert.InDelta(t, 30.0, p.Tax, 1e-9)
	assert.InDelta(t, 330.0, p.Total, 1e-9)
	assert.InDelta(t, 0.10, p.TaxRate, 1e-9)
}

func TestComputePrice_NonPositiveWindow(t *testing.T) {
	day0 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	for _, end := range []time.Time{day0, day0.Add(-time.Hour)} {
		p := ComputePrice(250, day0, end)
		assert.Equal(t, 0, p.Nights)
		assert.Zero(t, p.Base)
		assert.Zero(t, p.Total)
	}
}

func TestNights_RoundsUpPartialDays(t *testing.T) {
	start := time.Date(2026, 7, 1, 14, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, Nights(start, start.Add(time.Hour)))
	assert.Equal(t, 2, Nights(start, start.Add(25*time.Hour)))
	assert.Equal(t, 1, Nights(start, start.Add(24*time.Hour)))
}
