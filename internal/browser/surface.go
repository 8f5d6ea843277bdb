package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/kiosk"
)

// Config configures kiosk browser surfaces
type Config struct {
	BrowserPath string
	ProfilesDir string
	ExtraArgs   []string
	Logger      logging.Logger

	StartTimeout time.Duration
	CloseTimeout time.Duration
	// HeartbeatInterval is how often the page is pinged
	HeartbeatInterval time.Duration
	// UnresponsiveAfter is how long pings may fail before the page is
	// reported unresponsive
	UnresponsiveAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = logging.NewDefaultLogger()
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = 5 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 5 * time.Second
	}
	if c.UnresponsiveAfter <= 0 {
		c.UnresponsiveAfter = 30 * time.Second
	}
	return c
}

// NewSurfaceFactory returns a kiosk.SurfaceFactory that launches a browser
// per surface
func NewSurfaceFactory(cfg Config) kiosk.SurfaceFactory {
	cfg = cfg.withDefaults()
	return func(ctx context.Context, opts kiosk.SurfaceOptions) (kiosk.Surface, error) {
		return Open(ctx, cfg, opts)
	}
}

type requestInfo struct {
	url          string
	mainDocument bool
}

// Surface is one browser window attached over DevTools
type Surface struct {
	cfg   Config
	opts  kiosk.SurfaceOptions
	proc  *Process
	conn  *Conn
	queue *serialQueue

	mu          sync.Mutex
	sessionID   string
	targetID    string
	windowID    int
	mainFrameID string
	currentURL  string
	requests    map[string]requestInfo
	closing     bool

	stop chan struct{}
}

var _ kiosk.Surface = (*Surface)(nil)

// Open launches a browser and attaches to its page
func Open(ctx context.Context, cfg Config, opts kiosk.SurfaceOptions) (*Surface, error) {
	cfg = cfg.withDefaults()

	path, err := FindBrowser(cfg.BrowserPath)
	if err != nil {
		return nil, err
	}

	s := newSurface(cfg, opts)
	proc, err := Launch(ctx, LaunchOptions{
		Path:         path,
		ProfilesDir:  cfg.ProfilesDir,
		Kiosk:        opts.Kiosk,
		ExtraArgs:    cfg.ExtraArgs,
		StartTimeout: cfg.StartTimeout,
		OnStderr:     s.onStderr,
	})
	if err != nil {
		s.queue.Stop()
		return nil, err
	}
	s.proc = proc
	cfg.Logger.Debug("Browser started", "path", path, "profile", proc.ProfileDir())

	conn, err := Dial(ctx, proc.WebSocketURL(), s.onCDPEvent)
	if err != nil {
		proc.Kill()
		s.queue.Stop()
		return nil, err
	}

	if err := s.attach(ctx, conn); err != nil {
		conn.Close()
		proc.Kill()
		s.queue.Stop()
		return nil, err
	}

	go s.watch()
	go s.heartbeat()
	return s, nil
}

func newSurface(cfg Config, opts kiosk.SurfaceOptions) *Surface {
	return &Surface{
		cfg:      cfg,
		opts:     opts,
		queue:    newSerialQueue(),
		requests: make(map[string]requestInfo),
		stop:     make(chan struct{}),
	}
}

// attach finds the page target, opens a flattened session on it and
// enables the domains events are read from
func (s *Surface) attach(ctx context.Context, conn *Conn) error {
	s.conn = conn

	var targets struct {
		TargetInfos []struct {
			TargetID string `json:"targetId"`
			Type     string `json:"type"`
		} `json:"targetInfos"`
	}
	if err := conn.Call(ctx, "", "Target.getTargets", nil, &targets); err != nil {
		return err
	}
	targetID := ""
	for _, t := range targets.TargetInfos {
		if t.Type == "page" {
			targetID = t.TargetID
			break
		}
	}
	if targetID == "" {
		var created struct {
			TargetID string `json:"targetId"`
		}
		if err := conn.Call(ctx, "", "Target.createTarget", map[string]any{"url": "about:blank"}, &created); err != nil {
			return err
		}
		targetID = created.TargetID
	}

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	if err := conn.Call(ctx, "", "Target.attachToTarget", map[string]any{
		"targetId": targetID,
		"flatten":  true,
	}, &attached); err != nil {
		return err
	}

	s.mu.Lock()
	s.targetID = targetID
	s.sessionID = attached.SessionID
	s.mu.Unlock()

	session := attached.SessionID
	for _, domain := range []string{"Page.enable", "Network.enable", "Runtime.enable", "Inspector.enable"} {
		if err := conn.Call(ctx, session, domain, nil, nil); err != nil {
			return err
		}
	}

	var tree struct {
		FrameTree struct {
			Frame struct {
				ID string `json:"id"`
			} `json:"frame"`
		} `json:"frameTree"`
	}
	if err := conn.Call(ctx, session, "Page.getFrameTree", nil, &tree); err != nil {
		return err
	}
	s.mu.Lock()
	s.mainFrameID = tree.FrameTree.Frame.ID
	s.mu.Unlock()

	if err := conn.Call(ctx, session, "Emulation.setDefaultBackgroundColorOverride", map[string]any{
		"color": parseHexColor(s.opts.BackgroundColor),
	}, nil); err != nil {
		return err
	}

	if len(s.opts.Shortcuts) > 0 {
		if err := conn.Call(ctx, session, "Runtime.addBinding", map[string]any{"name": shortcutBinding}, nil); err != nil {
			return err
		}
		if err := conn.Call(ctx, session, "Page.addScriptToEvaluateOnNewDocument", map[string]any{
			"source": shortcutScript(s.opts.Shortcuts),
		}, nil); err != nil {
			return err
		}
	}

	var window struct {
		WindowID int `json:"windowId"`
	}
	if err := conn.Call(ctx, "", "Browser.getWindowForTarget", map[string]any{"targetId": targetID}, &window); err != nil {
		return err
	}
	s.mu.Lock()
	s.windowID = window.WindowID
	s.mu.Unlock()
	return nil
}

func (s *Surface) session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Surface) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Load navigates the page to url
func (s *Surface) Load(ctx context.Context, url string) error {
	s.mu.Lock()
	s.currentURL = url
	s.mu.Unlock()

	var nav struct {
		ErrorText string `json:"errorText"`
	}
	if err := s.conn.Call(ctx, s.session(), "Page.navigate", map[string]any{"url": url}, &nav); err != nil {
		return err
	}
	if nav.ErrorText != "" {
		// the failure itself is reported by Network.loadingFailed
		s.cfg.Logger.Debug("Navigation failed", "url", url, "error", nav.ErrorText)
	}
	return nil
}

// ClearCache drops the browser's HTTP cache
func (s *Surface) ClearCache(ctx context.Context) error {
	return s.conn.Call(ctx, s.session(), "Network.clearBrowserCache", nil, nil)
}

// InsertCSS adds css to the current document
func (s *Surface) InsertCSS(ctx context.Context, css string) error {
	var res struct {
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := s.conn.Call(ctx, s.session(), "Runtime.evaluate", map[string]any{
		"expression": insertCSSExpression(css),
	}, &res); err != nil {
		return err
	}
	if res.ExceptionDetails != nil {
		return fmt.Errorf("insert css: %s", res.ExceptionDetails.Text)
	}
	return nil
}

// SetKiosk switches the window between fullscreen and normal
func (s *Surface) SetKiosk(ctx context.Context, on bool) error {
	state := "normal"
	if on {
		state = "fullscreen"
	}
	s.mu.Lock()
	windowID := s.windowID
	s.mu.Unlock()
	return s.conn.Call(ctx, "", "Browser.setWindowBounds", map[string]any{
		"windowId": windowID,
		"bounds":   map[string]any{"windowState": state},
	}, nil)
}

// Close shuts the browser down and removes its profile
func (s *Surface) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	close(s.stop)
	s.queue.Stop()

	if err := s.conn.Call(ctx, "", "Browser.close", nil, nil); err != nil {
		s.cfg.Logger.Debug("Browser.close failed", "error", err)
	}
	if !s.proc.Wait(s.cfg.CloseTimeout) {
		s.cfg.Logger.Warn("Browser did not exit, killing it")
	}
	s.conn.Close()
	s.proc.Kill()
	return nil
}

func (s *Surface) emit(e kiosk.Event) {
	s.queue.Push(func() {
		if s.opts.OnEvent != nil && !s.isClosing() {
			s.opts.OnEvent(e)
		}
	})
}

// watch reports the surface closed when the browser goes away on its own
func (s *Surface) watch() {
	select {
	case <-s.proc.Exited():
	case <-s.conn.Done():
	case <-s.stop:
		return
	}
	if s.isClosing() {
		return
	}
	s.emit(kiosk.Event{Type: kiosk.EventClosed, Description: "browser exited"})
}

// heartbeat pings the page and reports it unresponsive once pings have
// failed for UnresponsiveAfter
func (s *Surface) heartbeat() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	lastOK := time.Now()
	reported := false
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HeartbeatInterval)
		err := s.conn.Call(ctx, s.session(), "Runtime.evaluate", map[string]any{
			"expression":    "1",
			"returnByValue": true,
		}, nil)
		cancel()

		if err == nil {
			lastOK = time.Now()
			reported = false
			continue
		}
		if !reported && time.Since(lastOK) >= s.cfg.UnresponsiveAfter {
			reported = true
			s.emit(kiosk.Event{Type: kiosk.EventUnresponsive, Description: err.Error()})
		}
	}
}

func (s *Surface) onStderr(line string) {
	if IsGPUCrash(line) {
		s.emit(kiosk.Event{Type: kiosk.EventGPUCrashed, Description: line})
	}
}

// onCDPEvent runs on the connection's read goroutine; it only queues
func (s *Surface) onCDPEvent(sessionID, method string, params json.RawMessage) {
	if method == "Target.detachedFromTarget" {
		var p struct {
			SessionID string `json:"sessionId"`
		}
		if json.Unmarshal(params, &p) == nil && p.SessionID == s.session() && !s.isClosing() {
			s.emit(kiosk.Event{Type: kiosk.EventClosed, Description: "page detached"})
		}
		return
	}
	if sessionID == "" || sessionID != s.session() {
		return
	}
	s.queue.Push(func() { s.dispatch(method, params) })
}

// dispatch translates one page-session event; it runs on the queue
func (s *Surface) dispatch(method string, params json.RawMessage) {
	if s.isClosing() || s.opts.OnEvent == nil {
		return
	}
	on := s.opts.OnEvent

	switch method {
	case "Page.frameNavigated":
		var p struct {
			Frame struct {
				ID       string `json:"id"`
				ParentID string `json:"parentId"`
				URL      string `json:"url"`
			} `json:"frame"`
		}
		if json.Unmarshal(params, &p) == nil && p.Frame.ParentID == "" {
			s.mu.Lock()
			s.mainFrameID = p.Frame.ID
			s.currentURL = p.Frame.URL
			s.mu.Unlock()
		}

	case "Page.loadEventFired":
		s.mu.Lock()
		url := s.currentURL
		s.mu.Unlock()
		on(kiosk.Event{Type: kiosk.EventDidFinishLoad, URL: url})

	case "Network.requestWillBeSent":
		var p struct {
			RequestID string `json:"requestId"`
			FrameID   string `json:"frameId"`
			Type      string `json:"type"`
			Request   struct {
				URL string `json:"url"`
			} `json:"request"`
		}
		if json.Unmarshal(params, &p) != nil {
			return
		}
		s.mu.Lock()
		main := p.Type == "Document" && (p.FrameID == s.mainFrameID || p.FrameID == s.targetID)
		s.requests[p.RequestID] = requestInfo{url: p.Request.URL, mainDocument: main}
		s.mu.Unlock()

	case "Network.loadingFinished":
		var p struct {
			RequestID string `json:"requestId"`
		}
		if json.Unmarshal(params, &p) == nil {
			s.mu.Lock()
			delete(s.requests, p.RequestID)
			s.mu.Unlock()
		}

	case "Network.loadingFailed":
		var p struct {
			RequestID string `json:"requestId"`
			ErrorText string `json:"errorText"`
			Canceled  bool   `json:"canceled"`
		}
		if json.Unmarshal(params, &p) != nil {
			return
		}
		s.mu.Lock()
		info := s.requests[p.RequestID]
		delete(s.requests, p.RequestID)
		s.mu.Unlock()
		// superseded navigations are cancelled, not failed
		if p.Canceled {
			return
		}
		if strings.Contains(p.ErrorText, "ERR_CERT") {
			on(kiosk.Event{Type: kiosk.EventCertificateError, URL: info.url, Description: p.ErrorText})
		}
		on(kiosk.Event{
			Type:        kiosk.EventDidFailLoad,
			URL:         info.url,
			IsMainFrame: info.mainDocument,
			Description: p.ErrorText,
		})

	case "Inspector.targetCrashed":
		on(kiosk.Event{Type: kiosk.EventCrashed, Description: "renderer crashed"})

	case "Inspector.detached":
		var p struct {
			Reason string `json:"reason"`
		}
		json.Unmarshal(params, &p)
		on(kiosk.Event{Type: kiosk.EventClosed, Description: p.Reason})

	case "Runtime.consoleAPICalled":
		var p struct {
			Type string         `json:"type"`
			Args []remoteObject `json:"args"`
		}
		if json.Unmarshal(params, &p) == nil {
			on(kiosk.Event{Type: kiosk.EventConsole, Level: p.Type, Message: consoleText(p.Args)})
		}

	case "Runtime.exceptionThrown":
		var p struct {
			ExceptionDetails struct {
				Text      string        `json:"text"`
				Exception *remoteObject `json:"exception"`
			} `json:"exceptionDetails"`
		}
		if json.Unmarshal(params, &p) == nil {
			msg := p.ExceptionDetails.Text
			if p.ExceptionDetails.Exception != nil && p.ExceptionDetails.Exception.Description != "" {
				msg = p.ExceptionDetails.Exception.Description
			}
			on(kiosk.Event{Type: kiosk.EventConsole, Level: "error", Message: msg})
		}

	case "Runtime.bindingCalled":
		var p struct {
			Name    string `json:"name"`
			Payload string `json:"payload"`
		}
		if json.Unmarshal(params, &p) == nil && p.Name == shortcutBinding && s.opts.OnShortcut != nil {
			s.opts.OnShortcut(p.Payload)
		}
	}
}
