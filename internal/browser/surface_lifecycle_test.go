package browser

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bigscreen/internal/kiosk"
	"bigscreen/internal/testutils"
)

func countMethod(fb *fakeBrowser, method string) int {
	n := 0
	for _, m := range fb.methods() {
		if m == method {
			n++
		}
	}
	return n
}

func TestWindow_DetachedSurfaceIsReleased(t *testing.T) {
	fb := newFakeBrowser(t)
	path := writeScript(t, `echo "DevTools listening on `+fb.URL()+`" >&2
sleep 30
`)
	profiles := t.TempDir()

	closed := make(chan struct{}, 1)
	w := kiosk.NewWindow(kiosk.Options{
		NewSurface: NewSurfaceFactory(Config{
			BrowserPath:       path,
			ProfilesDir:       profiles,
			Logger:            &testutils.RecordingLogger{},
			StartTimeout:      5 * time.Second,
			CloseTimeout:      100 * time.Millisecond,
			HeartbeatInterval: 10 * time.Millisecond,
		}),
		Logger:   &testutils.RecordingLogger{},
		OnClosed: func() { closed <- struct{}{} },
	})
	require.NoError(t, w.Open(context.Background(), "https://kiosk.example/"))
	waitUntil(t, func() bool { return countMethod(fb, "Runtime.evaluate") > 0 })

	fb.event("", "Target.detachedFromTarget", map[string]any{"sessionId": "S1", "targetId": "T1"})

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("window did not report closed")
	}
	assert.False(t, w.IsOpen())

	waitUntil(t, func() bool { return countMethod(fb, "Browser.close") == 1 })
	waitUntil(t, func() bool {
		entries, err := os.ReadDir(profiles)
		return err == nil && len(entries) == 0
	})

	pings := countMethod(fb, "Runtime.evaluate")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, pings, countMethod(fb, "Runtime.evaluate"), "heartbeat stops with the surface")

	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, 1, countMethod(fb, "Browser.close"))
}
