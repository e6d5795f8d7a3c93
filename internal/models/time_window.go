package models

import (
	"errors"
	"time"
)

// ErrInvalidDuration is returned when a time window is constructed with a
// non-positive duration.
var ErrInvalidDuration = errors.New("duration must be greater than zero minutes")

// TimeWindow is the scheduled slot of a game table: a start instant plus
// a duration. All temporal predicates treat the window as the closed-open
// interval [StartsAt, EndsAt).
type TimeWindow struct {
	StartsAt        time.Time `gorm:"index;not null" json:"starts_at"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
}

// NewTimeWindow validates and builds a TimeWindow.
func NewTimeWindow(startsAt time.Time, durationMinutes int) (TimeWindow, error) {
	if durationMinutes <= 0 {
		return TimeWindow{}, ErrInvalidDuration
	}
	return TimeWindow{StartsAt: startsAt, DurationMinutes: durationMinutes}, nil
}

// EndsAt returns the exclusive end of the window.
func (w TimeWindow) EndsAt() time.Time {
	return w.StartsAt.Add(time.Duration(w.DurationMinutes) * time.Minute)
}

// HasStarted reports whether the session has started at now.
func (w TimeWindow) HasStarted(now time.Time) bool {
	return !now.Before(w.StartsAt)
}

// IsPast reports whether the whole window is over at now.
func (w TimeWindow) IsPast(now time.Time) bool {
	return !now.Before(w.EndsAt())
}

// IsFuture reports whether the window has not begun at now.
func (w TimeWindow) IsFuture(now time.Time) bool {
	return now.Before(w.StartsAt)
}

// InProgress reports whether now falls inside [StartsAt, EndsAt).
func (w TimeWindow) InProgress(now time.Time) bool {
	return w.HasStarted(now) && !w.IsPast(now)
}

// Overlaps reports whether two windows share any instant. Back-to-back
// sessions (one ending exactly when the other starts) do not overlap.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.StartsAt.Before(other.EndsAt()) && other.StartsAt.Before(w.EndsAt())
}
