// Package kiosk owns the single full-screen display: it opens it, keeps it
// showing the configured page and recovers from load failures and crashes.
package kiosk

import (
	"context"
	"errors"
	"sync"
	"time"

	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/poll"
)

// State is the window lifecycle
type State int

const (
	StateClosed State = iota
	StateOpening
	StateLoaded
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateLoaded:
		return "loaded"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Accelerators bound while the window is open
const (
	ShortcutClose  = "CommandOrControl+W"
	ShortcutReload = "CommandOrControl+R"
)

// BackgroundColor is painted before the page draws
const BackgroundColor = "#000000"

const defaultOpTimeout = 30 * time.Second

// ErrAlreadyOpen is returned by Open while a surface exists
var ErrAlreadyOpen = errors.New("kiosk window already open")

// Reconnector polls a URL until it becomes reachable
type Reconnector interface {
	Poll(url string, onSuccess, onFailure poll.Callback)
	Cancel()
}

// Options configures a Window
type Options struct {
	NewSurface  SurfaceFactory
	Reconnector Reconnector
	Logger      logging.Logger
	// FallbackURL is shown while the page is unreachable
	FallbackURL string
	// CSS is inserted after every finished load
	CSS string
	// OnClosed runs once each time an opened window is torn down
	OnClosed  func()
	OpTimeout time.Duration
}

// Window is the kiosk display. Surface calls are made without holding the
// lock so surface events can be delivered while they are in progress.
type Window struct {
	mu        sync.Mutex
	opts      Options
	surface   Surface
	url       string
	state     State
	fallback  bool
	shortcuts map[string]func(context.Context) error
}

// NewWindow creates a closed window
func NewWindow(opts Options) *Window {
	if opts.Logger == nil {
		opts.Logger = logging.NewDefaultLogger()
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.Reconnector == nil {
		opts.Reconnector = poll.New(poll.Options{Logger: opts.Logger})
	}
	return &Window{opts: opts}
}

// State returns the current lifecycle state
func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// URL returns the last requested URL
func (w *Window) URL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

// IsOpen reports whether a surface exists
func (w *Window) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.surface != nil
}

// Open creates the kiosk surface and starts loading url. It returns once
// navigation is issued; load results arrive as surface events.
func (w *Window) Open(ctx context.Context, url string) error {
	w.mu.Lock()
	if w.state != StateClosed {
		w.mu.Unlock()
		return ErrAlreadyOpen
	}
	w.url = url
	w.state = StateOpening
	w.fallback = false
	w.shortcuts = map[string]func(context.Context) error{
		ShortcutClose:  w.Close,
		ShortcutReload: w.Load,
	}
	accelerators := make([]string, 0, len(w.shortcuts))
	for acc := range w.shortcuts {
		accelerators = append(accelerators, acc)
	}
	w.mu.Unlock()

	surface, err := w.opts.NewSurface(ctx, SurfaceOptions{
		BackgroundColor: BackgroundColor,
		Kiosk:           true,
		Shortcuts:       accelerators,
		OnEvent:         w.handleEvent,
		OnShortcut:      w.handleShortcut,
	})
	if err != nil {
		w.mu.Lock()
		w.state = StateClosed
		w.shortcuts = nil
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	w.surface = surface
	w.mu.Unlock()

	w.opts.Logger.Info("Kiosk window opened", "url", url)
	return w.Load(ctx)
}

// Load clears the cache and navigates to the stored URL. It is a no-op once
// the window is closed.
func (w *Window) Load(ctx context.Context) error {
	w.mu.Lock()
	surface, url := w.surface, w.url
	if surface == nil {
		w.mu.Unlock()
		return nil
	}
	w.fallback = false
	w.mu.Unlock()

	if err := surface.ClearCache(ctx); err != nil {
		logging.LogError(w.opts.Logger, err, "clear_cache", nil)
	}
	if err := surface.Load(ctx, url); err != nil {
		logging.LogError(w.opts.Logger, err, "load_url", map[string]interface{}{"url": url})
		return err
	}
	return nil
}

// Navigate replaces the stored URL and loads it
func (w *Window) Navigate(ctx context.Context, url string) error {
	w.mu.Lock()
	w.url = url
	w.mu.Unlock()
	w.opts.Reconnector.Cancel()
	return w.Load(ctx)
}

// Close leaves kiosk mode, destroys the surface and stops any reconnect
// poll. Closing a closed window is a no-op.
func (w *Window) Close(ctx context.Context) error {
	surface := w.teardown()
	if surface == nil {
		return nil
	}

	// Some platforms stay in kiosk mode if the surface goes away first
	if err := surface.SetKiosk(ctx, false); err != nil {
		logging.LogError(w.opts.Logger, err, "leave_kiosk", nil)
	}
	err := surface.Close(ctx)
	if err != nil {
		logging.LogError(w.opts.Logger, err, "close_window", nil)
	}

	w.opts.Logger.Info("Kiosk window closed")
	w.notifyClosed()
	return err
}

// teardown detaches the surface and returns it, or nil if already closed
func (w *Window) teardown() Surface {
	w.mu.Lock()
	defer w.mu.Unlock()
	surface := w.surface
	if surface == nil {
		return nil
	}
	w.surface = nil
	w.state = StateClosed
	w.fallback = false
	w.shortcuts = nil
	w.opts.Reconnector.Cancel()
	return surface
}

func (w *Window) notifyClosed() {
	if w.opts.OnClosed != nil {
		w.opts.OnClosed()
	}
}

func (w *Window) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), w.opts.OpTimeout)
}

func (w *Window) handleShortcut(accelerator string) {
	w.mu.Lock()
	handler, ok := w.shortcuts[accelerator]
	w.mu.Unlock()
	if !ok {
		return
	}

	w.opts.Logger.Debug("Shortcut pressed", "accelerator", accelerator)
	// handlers close or reload the surface that is delivering this call
	go func() {
		ctx, cancel := w.opContext()
		defer cancel()
		handler(ctx)
	}()
}

func (w *Window) handleEvent(e Event) {
	logger := w.opts.Logger

	switch e.Type {
	case EventDidFinishLoad:
		w.onDidFinishLoad()

	case EventDidFailLoad:
		logger.Error("did-fail-load", "url", e.URL, "is_main_frame", e.IsMainFrame, "description", e.Description)
		// subresources may fail without taking the page down
		if e.IsMainFrame {
			w.openFallback()
		}

	case EventCertificateError:
		logger.Warn("certificate-error", "url", e.URL, "description", e.Description)

	case EventCrashed, EventUnresponsive, EventGPUCrashed:
		logger.Error(e.Type.String(), "description", e.Description)
		w.reload()

	case EventConsole:
		logger.Debug(e.Message, "source", "page", "level", e.Level)

	case EventClosed:
		surface := w.teardown()
		if surface == nil {
			return
		}
		logger.Warn("Kiosk window closed unexpectedly", "description", e.Description)
		// the browser and its connection still need releasing; this runs on
		// the surface's own event queue
		go func() {
			ctx, cancel := w.opContext()
			defer cancel()
			if err := surface.Close(ctx); err != nil {
				logging.LogError(logger, err, "close_window", nil)
			}
		}()
		w.notifyClosed()
	}
}

func (w *Window) onDidFinishLoad() {
	w.mu.Lock()
	surface := w.surface
	if surface == nil {
		w.mu.Unlock()
		return
	}
	loaded := !w.fallback
	if loaded {
		w.state = StateLoaded
	}
	w.mu.Unlock()

	// the page is back, whichever reload brought it
	if loaded {
		w.opts.Reconnector.Cancel()
	}
	w.opts.Logger.Debug("did-finish-load")
	if w.opts.CSS == "" {
		return
	}
	ctx, cancel := w.opContext()
	defer cancel()
	if err := surface.InsertCSS(ctx, w.opts.CSS); err != nil {
		logging.LogError(w.opts.Logger, err, "insert_css", nil)
	}
}

func (w *Window) reload() {
	ctx, cancel := w.opContext()
	defer cancel()
	w.Load(ctx)
}

// openFallback shows the offline page and polls the URL until it answers
func (w *Window) openFallback() {
	w.mu.Lock()
	surface, url := w.surface, w.url
	// a failure of the fallback page itself must not start another poll
	if surface == nil || w.fallback {
		w.mu.Unlock()
		return
	}
	w.fallback = true
	w.state = StateReconnecting
	w.mu.Unlock()

	if w.opts.FallbackURL != "" {
		ctx, cancel := w.opContext()
		if err := surface.Load(ctx, w.opts.FallbackURL); err != nil {
			logging.LogError(w.opts.Logger, err, "load_fallback", nil)
		}
		cancel()
	}
	w.attemptToReconnect(url)
}

func (w *Window) attemptToReconnect(url string) {
	logger := w.opts.Logger
	logger.Error("attempting to reconnect", "url", url)

	w.opts.Reconnector.Poll(url, func(func()) {
		logger.Info("reconnected!", "url", url)
		w.reload()
	}, func(retry func()) {
		logger.Error("reconnect failed, trying again...", "url", url)
		retry()
	})
}
