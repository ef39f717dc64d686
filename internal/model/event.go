package model

import (
	"strings"
	"time"
)

// Event is a reservation opening the user tracks (concert, exhibition, popup)
type Event struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         *string    `json:"description,omitempty"`
	Organizer           *string    `json:"organizer,omitempty"`
	Category            *string    `json:"category,omitempty"`
	ReservationStart    time.Time  `json:"reservationStart"`
	ReservationEnd      *time.Time `json:"reservationEnd,omitempty"`
	ReservationPlatform *string    `json:"reservationPlatform,omitempty"`
	ReservationLink     *string    `json:"reservationLink,omitempty"`
	// Derived: the current user holds a notification for this event
	HasNotification bool      `json:"hasNotification"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// EventRecord is the event row as the backend returns it
type EventRecord struct {
	ID                  ID      `json:"id"`
	Title               string  `json:"title"`
	Description         *string `json:"description"`
	Organizer           *string `json:"organizer"`
	Category            *string `json:"category"`
	ReservationStart    *string `json:"reservation_start"`
	ReservationEnd      *string `json:"reservation_end"`
	ReservationPlatform *string `json:"reservation_platform"`
	ReservationLink     *string `json:"reservation_link"`
	CreatedAt           *string `json:"created_at"`
	UpdatedAt           *string `json:"updated_at"`
}

// EventInput holds the fields for creating an event
type EventInput struct {
	Title               string     `json:"title"`
	Description         *string    `json:"description,omitempty"`
	Organizer           *string    `json:"organizer,omitempty"`
	Category            *string    `json:"category,omitempty"`
	ReservationStart    time.Time  `json:"reservationStart"`
	ReservationEnd      *time.Time `json:"reservationEnd,omitempty"`
	ReservationPlatform *string    `json:"reservationPlatform,omitempty"`
	ReservationLink     *string    `json:"reservationLink,omitempty"`
}

// EventPatch holds a partial event update; nil fields are left unchanged
type EventPatch struct {
	Title               *string    `json:"title,omitempty"`
	Description         *string    `json:"description,omitempty"`
	Organizer           *string    `json:"organizer,omitempty"`
	Category            *string    `json:"category,omitempty"`
	ReservationStart    *time.Time `json:"reservationStart,omitempty"`
	ReservationEnd      *time.Time `json:"reservationEnd,omitempty"`
	ReservationPlatform *string    `json:"reservationPlatform,omitempty"`
	ReservationLink     *string    `json:"reservationLink,omitempty"`
}

// EventFilter narrows the event list. Empty fields do not filter.
type EventFilter struct {
	Category    string     `json:"category,omitempty"`
	Organizer   string     `json:"organizer,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	SearchQuery string     `json:"searchQuery,omitempty"`
}

// Merge returns f overlaid with the non-empty fields of other
func (f EventFilter) Merge(other EventFilter) EventFilter {
	if other.Category != "" {
		f.Category = other.Category
	}
	if other.Organizer != "" {
		f.Organizer = other.Organizer
	}
	if other.StartDate != nil {
		f.StartDate = other.StartDate
	}
	if other.EndDate != nil {
		f.EndDate = other.EndDate
	}
	if other.SearchQuery != "" {
		f.SearchQuery = other.SearchQuery
	}
	return f
}

// IsZero returns true if the filter matches everything
func (f EventFilter) IsZero() bool {
	return f.Category == "" && f.Organizer == "" && f.StartDate == nil &&
		f.EndDate == nil && f.SearchQuery == ""
}

// Matches reports whether the event passes the filter.
// The date range is inclusive on both ends and applies to ReservationStart.
// SearchQuery matches title, description, or organizer case-insensitively.
func (f EventFilter) Matches(e Event) bool {
	if f.Category != "" && (e.Category == nil || *e.Category != f.Category) {
		return false
	}
	if f.Organizer != "" && (e.Organizer == nil || *e.Organizer != f.Organizer) {
		return false
	}
	if f.StartDate != nil && e.ReservationStart.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.ReservationStart.After(*f.EndDate) {
		return false
	}
	if q := strings.TrimSpace(f.SearchQuery); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(e.Title), q) &&
			!containsFold(e.Description, q) &&
			!containsFold(e.Organizer, q) {
			return false
		}
	}
	return true
}

func containsFold(s *string, lowerQuery string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), lowerQuery)
}
