package model

import "time"

// Difficulty values stored in tours.difficulty.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// ValidDifficulty reports whether d is one of the known difficulty values.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
		return true
	}
	return false
}

// Tour mirrors the `tours` table. Secret tours are internal-only and never
// appear in public listings; the Secret column is excluded from projections
// regardless of what a client requests.
type Tour struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Duration       int       `json:"duration"`
	MaxGroupSize   int       `json:"max_group_size"`
	Difficulty     string    `json:"difficulty"`
	RatingsAverage float64   `json:"ratings_average"`
	RatingsQty     int       `json:"ratings_quantity"`
	Price          float64   `json:"price"`
	PriceDiscount  float64   `json:"price_discount,omitempty"`
	Summary        string    `json:"summary"`
	Description    string    `json:"description,omitempty"`
	Secret         bool      `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// TourStats is a per-difficulty aggregate row.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int64   `json:"num_tours"`
	AvgRating  float64 `json:"avg_rating"`
	AvgPrice   float64 `json:"avg_price"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
}
