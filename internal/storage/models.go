package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document is a stored piece of text the web demo checks repeatedly.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CheckRecord is one completed grammar check of a document. MatchesJSON
// holds the serialized match list as returned to the UI.
type CheckRecord struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"documentId"`
	CreatedAt   time.Time `json:"createdAt"`
	Language    string    `json:"language"`
	MatchCount  int       `json:"matchCount"`
	MatchesJSON string    `json:"matchesJson"`
}
