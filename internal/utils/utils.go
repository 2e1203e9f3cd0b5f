package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

const (
	idAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	connIDLength = 16
)

// GenerateID returns a random lowercase alphanumeric id of the given length.
func GenerateID(length int) (string, error) {
	return gonanoid.Generate(idAlphabet, length)
}

// NewConnID names a websocket connection.
func NewConnID() (string, error) {
	return GenerateID(connIDLength)
}
