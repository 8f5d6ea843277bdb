package app

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Preferences is the settings window shown when the kiosk is not running
type Preferences interface {
	Open(ctx context.Context)
	Close(ctx context.Context)
	Quit(ctx context.Context)
}

// wailsPreferences drives the Wails main window; ctx must be the one
// passed to OnStartup
type wailsPreferences struct{}

func (wailsPreferences) Open(ctx context.Context) {
	runtime.WindowShow(ctx)
	runtime.WindowUnminimise(ctx)
	runtime.EventsEmit(ctx, "preferences:opened")
}

func (wailsPreferences) Close(ctx context.Context) {
	runtime.WindowHide(ctx)
}

func (wailsPreferences) Quit(ctx context.Context) {
	runtime.Quit(ctx)
}
