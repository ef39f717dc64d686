package model

import "time"

// NotificationType is the delivery channel of a reservation reminder
type NotificationType string

const (
	NotificationPush  NotificationType = "push"
	NotificationEmail NotificationType = "email"
	NotificationBoth  NotificationType = "both"
)

// IsValid returns true if the type is one of the known channels
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationPush, NotificationEmail, NotificationBoth:
		return true
	default:
		return false
	}
}

// Reminder defaults used when toggling a notification on from the event list
const (
	DefaultReminderMinutes = 30
	DefaultReminderType    = NotificationPush
)

// Notification is a reminder the user set for an event's reservation opening
type Notification struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	EventID       string           `json:"eventId"`
	Type          NotificationType `json:"type"`
	MinutesBefore int              `json:"minutesBefore"`
	IsActive      bool             `json:"isActive"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// NotificationRecord is the notification row as the backend returns it
type NotificationRecord struct {
	ID            ID      `json:"id"`
	UserID        string  `json:"user_id"`
	EventID       ID      `json:"event_id"`
	Type          string  `json:"type"`
	MinutesBefore int     `json:"minutes_before"`
	IsActive      bool    `json:"is_active"`
	CreatedAt     *string `json:"created_at"`
	UpdatedAt     *string `json:"updated_at"`
}

// NotificationInput holds the fields for creating a notification.
// UserID may be empty; the backend then uses the caller's identity.
type NotificationInput struct {
	UserID        string           `json:"userId,omitempty"`
	EventID       string           `json:"eventId"`
	Type          NotificationType `json:"type"`
	MinutesBefore int              `json:"minutesBefore"`
	IsActive      bool             `json:"isActive"`
}

// NotificationPatch holds a partial notification update
type NotificationPatch struct {
	Type          *NotificationType `json:"type,omitempty"`
	MinutesBefore *int              `json:"minutesBefore,omitempty"`
	IsActive      *bool             `json:"isActive,omitempty"`
}
