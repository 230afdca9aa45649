package domain

import "time"

// Collection is a registered Knowledge Collection: an independently indexed
// corpus with its own embedding model, so raw similarity scores from
// different collections are never comparable.
type Collection struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	EmbeddingModel string    `json:"embedding_model"`
	DefaultWeight  float64   `json:"default_weight"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
