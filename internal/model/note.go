package model

import "time"

// Note is a user's free-text memo about an event
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	EventID   string    `json:"eventId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteRecord is the note row as the backend returns it
type NoteRecord struct {
	ID        ID      `json:"id"`
	UserID    string  `json:"user_id"`
	EventID   ID      `json:"event_id"`
	Content   string  `json:"content"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// NoteInput holds the fields for creating a note
type NoteInput struct {
	EventID string `json:"eventId"`
	Content string `json:"content"`
}
