package kiosk

import "context"

// EventType identifies something the display surface reports
type EventType int

const (
	EventDidFinishLoad EventType = iota
	EventDidFailLoad
	EventCertificateError
	EventCrashed
	EventUnresponsive
	EventGPUCrashed
	EventConsole
	EventClosed
)

var eventNames = map[EventType]string{
	EventDidFinishLoad:    "did-finish-load",
	EventDidFailLoad:      "did-fail-load",
	EventCertificateError: "certificate-error",
	EventCrashed:          "crashed",
	EventUnresponsive:     "unresponsive",
	EventGPUCrashed:       "gpu-process-crashed",
	EventConsole:          "console-message",
	EventClosed:           "closed",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is a lifecycle or error notification from a Surface
type Event struct {
	Type        EventType
	URL         string
	IsMainFrame bool
	Description string
	Level       string // console level for EventConsole
	Message     string // console text for EventConsole
}

// Surface is a native full-screen display that shows one page
type Surface interface {
	Load(ctx context.Context, url string) error
	ClearCache(ctx context.Context) error
	InsertCSS(ctx context.Context, css string) error
	SetKiosk(ctx context.Context, on bool) error
	Close(ctx context.Context) error
}

// SurfaceOptions configures a new Surface. OnEvent and OnShortcut may be
// called from any goroutine but never concurrently with themselves.
type SurfaceOptions struct {
	BackgroundColor string
	Kiosk           bool
	Shortcuts       []string
	OnEvent         func(Event)
	OnShortcut      func(accelerator string)
}

// SurfaceFactory creates a Surface
type SurfaceFactory func(ctx context.Context, opts SurfaceOptions) (Surface, error)
