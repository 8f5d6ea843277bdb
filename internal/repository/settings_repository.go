package repository

import (
	"context"
	"encoding/json"
	"fmt"
)

// SettingsRepository is the persistent key/value settings store.
// Values are any JSON-encodable value; reads return them decoded
// (numbers as float64, objects as map[string]any).
type SettingsRepository interface {
	// Get returns the value for key, or a NotFound error if it is absent
	Get(ctx context.Context, key string) (any, error)
	// Set stores value under key
	Set(ctx context.Context, key string, value any) error
	// GetAll returns every stored pair
	GetAll(ctx context.Context) (map[string]any, error)
	// SetAll replaces the whole store with values
	SetAll(ctx context.Context, values map[string]any) error
}

func encodeValue(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode setting: %w", err)
	}
	return string(data), nil
}

func decodeValue(raw string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("decode setting: %w", err)
	}
	return value, nil
}

// normalize round-trips value through JSON so the in-memory store returns
// the same shapes as the SQLite store
func normalize(value any) (any, error) {
	raw, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	return decodeValue(raw)
}
