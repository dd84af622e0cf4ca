package model

import "time"

// Review mirrors the `reviews` table. A review belongs to one tour and one
// author; the author is taken from the authenticated session, never from
// the request body.
type Review struct {
	ID        uint64    `json:"id"`
	TourID    uint64    `json:"tour_id"`
	UserID    uint64    `json:"user_id"`
	Rating    int       `json:"rating"`
	Body      string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
}
