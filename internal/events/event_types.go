package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventBookCreated    EventType = "book_created"
	EventBookDeleted    EventType = "book_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Username string `json:"username"`
}

// BookCreatedPayload payload.
type BookCreatedPayload struct {
	Title  string `json:"title"`
	Rating int    `json:"rating"`
}

// BookDeletedPayload payload.
type BookDeletedPayload struct {
	Title        string `json:"title"`
	ImageRemoved bool   `json:"image_removed"`
}
