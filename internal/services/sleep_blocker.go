package services

import (
	"context"
	"sync"

	apperrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/platform"
	"bigscreen/internal/settings"
)

const sleepBlockReason = "Displaying kiosk content"

// SleepBlocker keeps the display awake while enabled. The held inhibition
// is the source of truth; the persisted flag mirrors it.
type SleepBlocker struct {
	mu        sync.Mutex
	env       Env
	inhibitor platform.SleepInhibitor
	held      platform.Inhibition
}

// NewSleepBlocker creates a blocker over inhibitor
func NewSleepBlocker(env Env, inhibitor platform.SleepInhibitor) *SleepBlocker {
	if inhibitor == nil {
		inhibitor = platform.NewSleepInhibitor()
	}
	return &SleepBlocker{env: env.withDefaults(), inhibitor: inhibitor}
}

// IsEnabled reports whether an inhibition is held
func (b *SleepBlocker) IsEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.held != nil
}

// Enable starts blocking display sleep; a no-op if already blocking
func (b *SleepBlocker) Enable(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.held != nil {
		return nil
	}

	name := b.env.Settings.Name(ctx)
	held, err := b.inhibitor.Inhibit(ctx, name, sleepBlockReason)
	if err != nil {
		return apperrors.NewPlatformError("enable_sleep_blocking", "sleep_blocker", string(b.env.OS()), err)
	}
	b.held = held

	if err := b.env.Settings.Set(ctx, settings.KeySleepBlocking, true); err != nil {
		logging.LogError(b.env.Logger, err, "persist_sleep_blocking", nil)
	}
	b.env.Logger.Debug("Sleep blocking enabled")
	return nil
}

// Disable releases the inhibition and clears the persisted flag; a no-op
// when nothing is held
func (b *SleepBlocker) Disable(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.held == nil {
		return nil
	}

	err := b.held.Release()
	b.held = nil

	if setErr := b.env.Settings.Set(ctx, settings.KeySleepBlocking, false); setErr != nil {
		logging.LogError(b.env.Logger, setErr, "persist_sleep_blocking", nil)
	}
	if err != nil {
		return apperrors.NewPlatformError("disable_sleep_blocking", "sleep_blocker", string(b.env.OS()), err)
	}
	b.env.Logger.Debug("Sleep blocking disabled")
	return nil
}
