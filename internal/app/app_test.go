package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bigscreen/internal/config"
	apperrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/repository"
	"bigscreen/internal/settings"
	"bigscreen/internal/testutils"
)

type fakeFullscreen struct {
	mu        sync.Mutex
	should    bool
	running   bool
	startErr  error
	starts    int
	navs      []string
	shutdowns int
}

func (f *fakeFullscreen) ShouldFullscreenStart(context.Context) bool { return f.should }

func (f *fakeFullscreen) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeFullscreen) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeFullscreen) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navs = append(f.navs, url)
	return nil
}

func (f *fakeFullscreen) Shutdown(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	f.running = false
}

type fakePreferences struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePreferences) record(e string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *fakePreferences) Open(context.Context)  { p.record("open") }
func (p *fakePreferences) Close(context.Context) { p.record("close") }
func (p *fakePreferences) Quit(context.Context)  { p.record("quit") }

func (p *fakePreferences) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type fakeAutoLaunch struct {
	enabled bool
	err     error
}

func (f *fakeAutoLaunch) IsEnabled(context.Context) bool { return f.enabled }

func (f *fakeAutoLaunch) Enable(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.enabled = true
	return nil
}

func (f *fakeAutoLaunch) Disable(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.enabled = false
	return nil
}

type appHarness struct {
	app        *App
	fullscreen *fakeFullscreen
	prefs      *fakePreferences
	autoLaunch *fakeAutoLaunch
	repo       *repository.MemorySettingsRepository
	loads      int
}

func newAppHarness(t *testing.T, initial map[string]any, doc config.Document) *appHarness {
	t.Helper()
	logger := &testutils.RecordingLogger{}
	h := &appHarness{
		fullscreen: &fakeFullscreen{},
		prefs:      &fakePreferences{},
		autoLaunch: &fakeAutoLaunch{},
		repo:       repository.NewMemorySettingsRepository(initial),
	}
	h.app = &App{
		cfg: Config{
			Paths: config.NewPaths("lobby"),
			Load: func() (config.Document, error) {
				h.loads++
				return doc, nil
			},
			Logger: logger,
		},
		logger:     logger,
		settings:   settings.New(h.repo, logger),
		fullscreen: h.fullscreen,
		autoLaunch: h.autoLaunch,
		prefs:      h.prefs,
	}
	return h
}

func TestBootstrap_SeedsEmptyStore(t *testing.T) {
	h := newAppHarness(t, nil, config.Document{"app_name": "Lobby", "default_url": "https://lobby.example/"})

	require.NoError(t, h.app.Bootstrap(context.Background()))

	assert.Equal(t, 1, h.loads)
	got, err := h.repo.Get(context.Background(), settings.KeyDefaultURL)
	require.NoError(t, err)
	assert.Equal(t, "https://lobby.example/", got)
}

func TestBootstrap_KeepsExistingStore(t *testing.T) {
	h := newAppHarness(t, map[string]any{settings.KeyURL: "https://mine.example/"}, config.Document{"app_name": "Lobby"})

	require.NoError(t, h.app.Bootstrap(context.Background()))

	assert.Zero(t, h.loads)
}

func TestBootstrap_LoadFailureIsReturned(t *testing.T) {
	h := newAppHarness(t, nil, nil)
	h.app.cfg.Load = func() (config.Document, error) {
		return nil, apperrors.ConfigError("LoadConfig", "config.yaml", errors.New("bad yaml"))
	}

	err := h.app.Bootstrap(context.Background())

	assert.True(t, apperrors.IsConfig(err))
}

func TestStartup_ResumesFullscreen(t *testing.T) {
	h := newAppHarness(t, nil, nil)
	h.fullscreen.should = true

	h.app.Startup(context.Background())

	assert.Equal(t, 1, h.fullscreen.starts)
	assert.Empty(t, h.prefs.Events())
}

func TestStartup_OpensPreferences(t *testing.T) {
	h := newAppHarness(t, nil, nil)

	h.app.Startup(context.Background())

	assert.Zero(t, h.fullscreen.starts)
	assert.Equal(t, []string{"open"}, h.prefs.Events())
}

func TestStartup_FallsBackToPreferencesWhenStartFails(t *testing.T) {
	h := newAppHarness(t, nil, nil)
	h.fullscreen.should = true
	h.fullscreen.startErr = apperrors.ErrNoURL

	h.app.Startup(context.Background())

	assert.Equal(t, []string{"open"}, h.prefs.Events())
}

func TestStartFullscreen_SavesURLAndSwitches(t *testing.T) {
	h := newAppHarness(t, nil, nil)
	h.app.Startup(context.Background())

	require.NoError(t, h.app.StartFullscreen("https://kiosk.example/"))

	got, err := h.repo.Get(context.Background(), settings.KeyURL)
	require.NoError(t, err)
	assert.Equal(t, "https://kiosk.example/", got)
	assert.Equal(t, []string{"open", "close"}, h.prefs.Events())
	assert.Equal(t, 1, h.fullscreen.starts)
}

func TestStartFullscreen_FailureReopensPreferences(t *testing.T) {
	h := newAppHarness(t, nil, nil)
	h.fullscreen.startErr = apperrors.ErrBrowserNotFound

	err := h.app.StartFullscreen("https://kiosk.example/")

	assert.ErrorIs(t, err, apperrors.ErrBrowserNotFound)
	assert.Equal(t, []string{"close", "open"}, h.prefs.Events())
}

func TestStartFullscreen_WhileRunningNavigates(t *testing.T) {
	h := newAppHarness(t, nil, nil)
	h.fullscreen.running = true

	require.NoError(t, h.app.StartFullscreen("https://next.example/"))

	assert.Zero(t, h.fullscreen.starts)
	assert.Equal(t, []string{"https://next.example/"}, h.fullscreen.navs)
}

func TestBeforeClose(t *testing.T) {
	ctx := context.Background()

	t.Run("quits when kiosk is not running", func(t *testing.T) {
		h := newAppHarness(t, nil, nil)
		assert.False(t, h.app.BeforeClose(ctx))
	})

	t.Run("hides while kiosk runs", func(t *testing.T) {
		h := newAppHarness(t, nil, nil)
		h.fullscreen.running = true
		assert.True(t, h.app.BeforeClose(ctx))
		assert.Equal(t, []string{"close"}, h.prefs.Events())
	})

	t.Run("never blocks an explicit quit", func(t *testing.T) {
		h := newAppHarness(t, nil, nil)
		h.fullscreen.running = true
		h.app.QuitApp()
		assert.False(t, h.app.BeforeClose(ctx))
		assert.Equal(t, []string{"quit"}, h.prefs.Events())
	})
}

func TestFullscreenStopped_ReopensPreferences(t *testing.T) {
	h := newAppHarness(t, nil, nil)

	h.app.onFullscreenStopped()
	assert.Equal(t, []string{"open"}, h.prefs.Events())

	h.app.Shutdown(context.Background())
	h.app.onFullscreenStopped()
	assert.Equal(t, []string{"open"}, h.prefs.Events(), "no preferences while quitting")
	assert.Equal(t, 1, h.fullscreen.shutdowns)
}

func TestAutoLaunchAPI(t *testing.T) {
	h := newAppHarness(t, nil, nil)

	require.NoError(t, h.app.EnableAutoLaunch())
	assert.True(t, h.app.IsAutoLaunchEnabled())
	require.NoError(t, h.app.DisableAutoLaunch())
	assert.False(t, h.app.IsAutoLaunchEnabled())

	h.autoLaunch.err = errors.New("registry denied")
	assert.Error(t, h.app.EnableAutoLaunch())
}

func TestGetSettingsAndNotifications(t *testing.T) {
	h := newAppHarness(t, map[string]any{settings.KeyURL: "https://kiosk.example/"}, nil)

	require.NoError(t, h.app.SetNotificationsBlocking(true))
	all, err := h.app.GetSettings()

	require.NoError(t, err)
	assert.Equal(t, "https://kiosk.example/", all[settings.KeyURL])
	assert.Equal(t, true, all[settings.KeyNotificationsBlocking])
}

func TestReloadConfig_NavigatesToNewURL(t *testing.T) {
	h := newAppHarness(t, map[string]any{settings.KeyURL: "https://old.example/"}, config.Document{
		"app_name": "Lobby",
		"url":      "https://new.example/",
	})
	h.fullscreen.running = true

	h.app.reloadConfig()

	assert.Equal(t, 1, h.loads)
	assert.Equal(t, []string{"https://new.example/"}, h.fullscreen.navs)
}
