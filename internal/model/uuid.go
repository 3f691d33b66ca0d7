package model

import "github.com/google/uuid"

// NewID creates a new node identifier.
func NewID() string {
	return uuid.New().String()
}
