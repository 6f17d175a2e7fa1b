package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates surrogate keys for persisted entities.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator emits time-ordered v7 UUIDs so new rows append to btree indexes.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return v.String(), nil
}

// Valid reports whether raw parses as a UUID.
func Valid(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
