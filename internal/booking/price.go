package booking

import (
	"math"
	"time"

	"hotelbook/internal/models"
)

const day = 24 * time.Hour

// Nights counts started days between start and end. Non-positive windows
// yield 0; callers reject those as invalid on their own.
func Nights(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(math.Ceil(float64(end.Sub(start)) / float64(day)))
}

// ComputePrice builds the price breakdown for a stay of rate per night.
// Amounts are not rounded.
func ComputePrice(rate float64, start, end time.Time) models.PriceBreakdown {
	nights := Nights(start, end)
	base := rate * float64(nights)
	tax := base * models.TaxRate
	return models.PriceBreakdown{
		Nights:  nights,
		Rate:    rate,
		Base:    base,
		TaxRate: models.TaxRate,
		Tax:     tax,
		Total:   base + tax,
	}
}
