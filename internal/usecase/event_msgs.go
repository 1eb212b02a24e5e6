package usecase

import "time"

type BookEventType string

const (
	BookCreated BookEventType = "book.created"
	BookUpdated BookEventType = "book.updated"
	BookDeleted BookEventType = "book.deleted"
)

// Published on the events exchange; routing key == Type.
type BookEventMsg struct {
	EventID    string        `json:"eventId"`
	Type       BookEventType `json:"type"`
	BookID     int64         `json:"bookId"`
	Title      string        `json:"title,omitempty"`
	Price      string        `json:"price,omitempty"`
	Quantity   int           `json:"quantity"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// Consumed from cart.export.q
type ExportCartRequestedMsg struct {
	UserID      string    `json:"userId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Consumed from the book ingest topic. Key, when set, makes redelivery safe.
type BookIngestMsg struct {
	Key             string `json:"key,omitempty"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Category        string `json:"category"`
	Price           string `json:"price"`
	PublicationYear int    `json:"publicationYear"`
	Quantity        int    `json:"quantity"`
}
