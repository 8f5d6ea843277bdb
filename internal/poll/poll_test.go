package poll

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bigscreen/internal/testutils"
)

type manualClock struct {
	*testutils.FakeClock
}

func (c manualClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.FakeClock.AfterFunc(d, f)
}

// scriptedChecker fails the first failures checks, then succeeds
type scriptedChecker struct {
	mu       sync.Mutex
	urls     []string
	failures int
	block    chan struct{}
}

func (c *scriptedChecker) Check(ctx context.Context, url string) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls = append(c.urls, url)
	if len(c.urls) <= c.failures {
		return errors.New("connection refused")
	}
	return nil
}

func (c *scriptedChecker) checked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.urls...)
}

func newTestPoller(checker Checker) (*Poller, *testutils.FakeClock) {
	clock := testutils.NewFakeClock()
	p := New(Options{
		Clock:   manualClock{clock},
		Checker: checker,
		Logger:  &testutils.RecordingLogger{},
	})
	return p, clock
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll callback")
		return ""
	}
}

func TestCallPollAfterTimeout_OnlyLatestFires(t *testing.T) {
	checker := &scriptedChecker{}
	p, clock := newTestPoller(checker)
	defer p.Close()

	done := make(chan string, 2)
	onSuccess := func(url string) Callback {
		return func(func()) { done <- url }
	}
	never := func(func()) { t.Error("unexpected failure") }

	p.CallPollAfterTimeout("https://first.example/", onSuccess("first"), never)
	clock.Advance(500 * time.Millisecond)
	p.CallPollAfterTimeout("https://second.example/", onSuccess("second"), never)
	assert.Equal(t, 1, clock.Pending(), "second schedule must replace the first timer")

	clock.Advance(DefaultDelay)
	assert.Equal(t, "second", waitFor(t, done))
	assert.Equal(t, []string{"https://second.example/"}, checker.checked())
	assert.Equal(t, 0, clock.Pending())

	select {
	case url := <-done:
		t.Fatalf("superseded poll fired for %s", url)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPoll_RetriesUntilReachable(t *testing.T) {
	checker := &scriptedChecker{failures: 2}
	p, clock := newTestPoller(checker)
	defer p.Close()

	events := make(chan string, 4)
	onSuccess := func(func()) { events <- "success" }
	onFailure := func(retry func()) {
		retry()
		events <- "failure"
	}

	p.Poll("https://kiosk.example/", onSuccess, onFailure)
	assert.Equal(t, "failure", waitFor(t, events))

	clock.Advance(DefaultDelay)
	assert.Equal(t, "failure", waitFor(t, events))

	clock.Advance(DefaultDelay)
	assert.Equal(t, "success", waitFor(t, events))
	assert.Len(t, checker.checked(), 3)
	assert.Equal(t, 0, clock.Pending())
}

func TestPoll_NotCallingRetryEndsSequence(t *testing.T) {
	checker := &scriptedChecker{failures: 10}
	p, clock := newTestPoller(checker)
	defer p.Close()

	events := make(chan string, 1)
	p.Poll("https://kiosk.example/", func(func()) {}, func(func()) { events <- "failure" })
	waitFor(t, events)

	assert.Equal(t, 0, clock.Pending())
	clock.Advance(10 * DefaultDelay)
	assert.Len(t, checker.checked(), 1)
}

func TestCancel_DropsPendingTimer(t *testing.T) {
	checker := &scriptedChecker{}
	p, clock := newTestPoller(checker)
	defer p.Close()

	p.CallPollAfterTimeout("https://kiosk.example/", func(func()) { t.Error("fired after cancel") }, func(func()) {})
	p.Cancel()
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(DefaultDelay)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, checker.checked())
}

func TestCancel_DiscardsCheckInFlight(t *testing.T) {
	checker := &scriptedChecker{block: make(chan struct{})}
	p, clock := newTestPoller(checker)
	defer p.Close()

	p.Poll("https://kiosk.example/", func(func()) { t.Error("stale success delivered") }, func(func()) { t.Error("stale failure delivered") })
	p.Cancel()
	close(checker.block)

	require.Eventually(t, func() bool { return len(checker.checked()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, clock.Pending())
}

// ctxChecker blocks until its context ends and reports why
type ctxChecker struct {
	started chan struct{}
	done    chan error
}

func (c *ctxChecker) Check(ctx context.Context, url string) error {
	close(c.started)
	<-ctx.Done()
	c.done <- ctx.Err()
	return ctx.Err()
}

func TestCancel_AbortsCheckInFlight(t *testing.T) {
	checker := &ctxChecker{started: make(chan struct{}), done: make(chan error, 1)}
	p, _ := newTestPoller(checker)
	defer p.Close()

	p.Poll("https://kiosk.example/", func(func()) { t.Error("stale success delivered") }, func(func()) { t.Error("stale failure delivered") })
	<-checker.started
	p.Cancel()

	select {
	case err := <-checker.done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("check was not aborted")
	}
}

func TestStaleRetryIsIgnored(t *testing.T) {
	checker := &scriptedChecker{failures: 1}
	p, clock := newTestPoller(checker)
	defer p.Close()

	retries := make(chan func(), 1)
	p.Poll("https://kiosk.example/", func(func()) {}, func(retry func()) { retries <- retry })

	var retry func()
	select {
	case retry = <-retries:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure")
	}

	p.Cancel()
	retry()
	assert.Equal(t, 0, clock.Pending(), "retry from a cancelled sequence must not schedule")
}

func TestReachabilityChecker_Network(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/created", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewReachabilityChecker(CheckerOptions{Timeout: time.Second})
	ctx := context.Background()

	assert.NoError(t, c.Check(ctx, srv.URL+"/ok"))
	assert.NoError(t, c.Check(ctx, srv.URL+"/ok"), "revisiting a URL must still check it")
	assert.Error(t, c.Check(ctx, srv.URL+"/created"), "only 200 counts as reachable")
	assert.Error(t, c.Check(ctx, srv.URL+"/missing"))

	closed := httptest.NewServer(mux)
	closedURL := closed.URL
	closed.Close()
	assert.Error(t, c.Check(ctx, closedURL+"/ok"))
}

func TestReachabilityChecker_ContextAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewReachabilityChecker(CheckerOptions{Timeout: 10 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Check(ctx, srv.URL)

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "request must end with its context")
}

func TestReachabilityChecker_File(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(page, []byte("<html></html>"), 0o644))

	c := NewReachabilityChecker(CheckerOptions{})
	ctx := context.Background()

	assert.NoError(t, c.Check(ctx, "file://"+filepath.ToSlash(page)))
	assert.Error(t, c.Check(ctx, "file://"+filepath.ToSlash(filepath.Join(dir, "gone.html"))))
}

func TestReachabilityChecker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewReachabilityChecker(CheckerOptions{}).Check(ctx, "https://kiosk.example/")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsFileURL(t *testing.T) {
	assert.True(t, IsFileURL("file:///srv/kiosk/index.html"))
	assert.False(t, IsFileURL("https://example.com/"))
	assert.Equal(t, filepath.FromSlash("/srv/kiosk/index.html"), FilePath("file:///srv/kiosk/index.html"))
}
