package repository

import (
	"context"
	"maps"
	"sync"

	repoerrors "bigscreen/internal/infrastructure/errors"
)

// MemorySettingsRepository keeps settings in process memory. It backs tests
// and the degraded mode used when the settings database cannot be opened.
type MemorySettingsRepository struct {
	mu     sync.RWMutex
	values map[string]any
}

var _ SettingsRepository = (*MemorySettingsRepository)(nil)

// NewMemorySettingsRepository creates a repository holding a copy of initial
func NewMemorySettingsRepository(initial map[string]any) *MemorySettingsRepository {
	r := &MemorySettingsRepository{values: make(map[string]any)}
	for k, v := range initial {
		if nv, err := normalize(v); err == nil {
			r.values[k] = nv
		}
	}
	return r
}

func (r *MemorySettingsRepository) Get(_ context.Context, key string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.values[key]
	if !ok {
		return nil, repoerrors.NotFoundError("GetSetting", "setting", key)
	}
	return value, nil
}

func (r *MemorySettingsRepository) Set(_ context.Context, key string, value any) error {
	if key == "" {
		return repoerrors.ValidationError("SetSetting", "key", "empty key")
	}
	nv, err := normalize(value)
	if err != nil {
		return repoerrors.ValidationError("SetSetting", key, err.Error())
	}
	r.mu.Lock()
	r.values[key] = nv
	r.mu.Unlock()
	return nil
}

func (r *MemorySettingsRepository) GetAll(_ context.Context) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.values), nil
}

func (r *MemorySettingsRepository) SetAll(_ context.Context, values map[string]any) error {
	next := make(map[string]any, len(values))
	for k, v := range values {
		if k == "" {
			return repoerrors.ValidationError("SetAllSettings", "key", "empty key")
		}
		nv, err := normalize(v)
		if err != nil {
			return repoerrors.ValidationError("SetAllSettings", k, err.Error())
		}
		next[k] = nv
	}
	r.mu.Lock()
	r.values = next
	r.mu.Unlock()
	return nil
}
