package model

import "time"

// InboxType classifies an in-app alert
type InboxType string

const (
	InboxReservationCreated   InboxType = "reservation_created"
	InboxReservationConfirmed InboxType = "reservation_confirmed"
	InboxReservationCancelled InboxType = "reservation_cancelled"
)

// InboxNotification is an alert in the user's in-app feed
type InboxNotification struct {
	ID        string         `json:"id"`
	Type      InboxType      `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	ReadAt    *time.Time     `json:"readAt,omitempty"`
}

// IsRead returns true once the alert has been marked read
func (n InboxNotification) IsRead() bool {
	return n.ReadAt != nil
}

// InboxRecord is the alert row as the backend returns it
type InboxRecord struct {
	ID        ID             `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	CreatedAt *string        `json:"created_at"`
	ReadAt    *string        `json:"read_at"`
}
