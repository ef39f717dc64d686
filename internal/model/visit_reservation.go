package model

import "time"

// VisitStatus is the state of a booth visit reservation.
// Any status may be set from any other; the backend does not constrain transitions.
type VisitStatus string

const (
	VisitPending   VisitStatus = "pending"
	VisitConfirmed VisitStatus = "confirmed"
	VisitCancelled VisitStatus = "cancelled"
	VisitCompleted VisitStatus = "completed"
)

// IsValid returns true if the status is one of the closed set
func (s VisitStatus) IsValid() bool {
	switch s {
	case VisitPending, VisitConfirmed, VisitCancelled, VisitCompleted:
		return true
	default:
		return false
	}
}

// VisitReservation is a visitor's booking for a popup booth activity
type VisitReservation struct {
	ID                  string      `json:"id"`
	BoothActivityID     string      `json:"boothActivityId"`
	VisitorName         string      `json:"visitorName"`
	VisitorPhone        string      `json:"visitorPhone"`
	VisitorEmail        string      `json:"visitorEmail"`
	VisitDatetime       time.Time   `json:"visitDatetime"`
	ReservationPlatform *string     `json:"reservationPlatform,omitempty"`
	ReservationURL      *string     `json:"reservationUrl,omitempty"`
	Notes               *string     `json:"notes,omitempty"`
	Status              VisitStatus `json:"status"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
	// Read-only, joined from the booth activity by the list/get procedures
	ActivityTitle       string  `json:"activityTitle,omitempty"`
	ActivityDescription *string `json:"activityDescription,omitempty"`
	BrandName           string  `json:"brandName,omitempty"`
	VenueName           string  `json:"venueName,omitempty"`
}

// VisitReservationRecord is the reservation row as the backend returns it
type VisitReservationRecord struct {
	ID                  ID      `json:"id"`
	BoothActivityID     ID      `json:"booth_activity_id"`
	VisitorName         string  `json:"visitor_name"`
	VisitorPhone        string  `json:"visitor_phone"`
	VisitorEmail        string  `json:"visitor_email"`
	VisitDatetime       *string `json:"visit_datetime"`
	ReservationPlatform *string `json:"reservation_platform"`
	ReservationURL      *string `json:"reservation_url"`
	Notes               *string `json:"notes"`
	Status              string  `json:"status"`
	CreatedAt           *string `json:"created_at"`
	UpdatedAt           *string `json:"updated_at"`
	ActivityTitle       string  `json:"activity_title,omitempty"`
	ActivityDescription *string `json:"activity_description,omitempty"`
	BrandName           string  `json:"brand_name,omitempty"`
	VenueName           string  `json:"venue_name,omitempty"`
}

// VisitReservationInput holds the fields for booking a visit
type VisitReservationInput struct {
	BoothActivityID     string    `json:"boothActivityId"`
	VisitorName         string    `json:"visitorName"`
	VisitorPhone        string    `json:"visitorPhone"`
	VisitorEmail        string    `json:"visitorEmail"`
	VisitDatetime       time.Time `json:"visitDatetime"`
	ReservationPlatform *string   `json:"reservationPlatform,omitempty"`
	ReservationURL      *string   `json:"reservationUrl,omitempty"`
	Notes               *string   `json:"notes,omitempty"`
}

// VisitReservationPatch holds a partial reservation update
type VisitReservationPatch struct {
	VisitorName         *string      `json:"visitorName,omitempty"`
	VisitorPhone        *string      `json:"visitorPhone,omitempty"`
	VisitorEmail        *string      `json:"visitorEmail,omitempty"`
	VisitDatetime       *time.Time   `json:"visitDatetime,omitempty"`
	ReservationPlatform *string      `json:"reservationPlatform,omitempty"`
	ReservationURL      *string      `json:"reservationUrl,omitempty"`
	Notes               *string      `json:"notes,omitempty"`
	Status              *VisitStatus `json:"status,omitempty"`
}

// VisitReservationFilter narrows the reservation list
type VisitReservationFilter struct {
	BoothActivityID string      `json:"boothActivityId,omitempty"`
	StartDate       *time.Time  `json:"startDate,omitempty"`
	EndDate         *time.Time  `json:"endDate,omitempty"`
	Status          VisitStatus `json:"status,omitempty"`
}
