package models

import "time"

// Resource is a room or a table that can be reserved.
type Resource struct {
	ID            string    `json:"id" yaml:"id"`
	Kind          string    `json:"kind" yaml:"kind"`
	Name          string    `json:"name" yaml:"name"`
	Capacity      int       `json:"capacity" yaml:"capacity"`
	Category      string    `json:"category" yaml:"category"`
	Location      string    `json:"location" yaml:"location"`
	Ambiance      string    `json:"ambiance" yaml:"ambiance"`
	AverageRating *float64  `json:"average_rating,omitempty" yaml:"average_rating"`
	BasePrice     float64   `json:"base_price" yaml:"base_price"`
	Status        string    `json:"status" yaml:"status"`
	Image         string    `json:"image,omitempty" yaml:"image"`
	TotalBookings int64     `json:"total_bookings" yaml:"total_bookings"`
	SortOrder     int64     `json:"sort_order" yaml:"sort_order"`
	CreatedAt     time.Time `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"-"`
}

// IsAvailable reports whether the resource is marked as free for new guests.
func (r Resource) IsAvailable() bool {
	return r.Status == ResourceStatusAvailable
}

// Rating returns the average rating and whether one is set.
func (r Resource) Rating() (float64, bool) {
	if r.AverageRating == nil {
		return 0, false
	}
	return *r.AverageRating, true
}

// Float64 returns a pointer to v. Handy for optional ratings.
func Float64(v float64) *float64 {
	return &v
}
