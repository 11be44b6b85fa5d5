package booking

import "hotelbook/internal/models"

// Overlaps reports whether two half-open windows intersect. Touching
// endpoints do not count.
func Overlaps(candidate models.Interval, existing models.ReservationInterval) bool {
	return candidate.Start.Before(existing.End) && candidate.End.After(existing.Start)
}

// IsAvailable reports whether candidate is free against existing. Intervals
// owned by excludeID are ignored so an edited reservation does not conflict
// with itself.
func IsAvailable(existing []models.ReservationInterval, candidate models.Interval, excludeID string) bool {
	for i := range existing {
		if excludeID != "" && existing[i].ID == excludeID {
			continue
		}
		if Overlaps(candidate, existing[i]) {
			return false
		}
	}
	return true
}

// FindConflicts returns every interval in existing that blocks candidate.
func FindConflicts(existing []models.ReservationInterval, candidate models.Interval, excludeID string) []models.ReservationInterval {
	var conflicts []models.ReservationInterval
	for i := range existing {
		if excludeID != "" && existing[i].ID == excludeID {
			continue
		}
		if Overlaps(candidate, existing[i]) {
			conflicts = append(conflicts, existing[i])
		}
	}
	return conflicts
}
