// Package browser runs a Chromium-family browser in kiosk mode and drives
// it over the DevTools protocol as a kiosk.Surface.
package browser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "bigscreen/internal/infrastructure/errors"
)

var devToolsLine = regexp.MustCompile(`DevTools listening on (ws://\S+)`)

// candidates lists browser executables to try, most preferred first
func candidates() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	case "windows":
		var out []string
		for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)", "LocalAppData"} {
			root := os.Getenv(env)
			if root == "" {
				continue
			}
			out = append(out,
				filepath.Join(root, "Google", "Chrome", "Application", "chrome.exe"),
				filepath.Join(root, "Chromium", "Application", "chrome.exe"),
				filepath.Join(root, "Microsoft", "Edge", "Application", "msedge.exe"),
			)
		}
		return out
	default:
		return []string{
			"google-chrome-stable",
			"google-chrome",
			"chromium",
			"chromium-browser",
			"microsoft-edge",
		}
	}
}

// FindBrowser returns explicit if it is runnable, otherwise the first
// installed candidate
func FindBrowser(explicit string) (string, error) {
	if explicit != "" {
		if path, err := exec.LookPath(explicit); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s", apperrors.ErrBrowserNotFound, explicit)
	}
	for _, c := range candidates() {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", apperrors.ErrBrowserNotFound
}

// LaunchOptions configures a browser process
type LaunchOptions struct {
	Path        string
	ProfilesDir string
	Kiosk       bool
	ExtraArgs   []string
	// StartTimeout bounds the wait for the DevTools endpoint
	StartTimeout time.Duration
	// OnStderr receives every stderr line after startup
	OnStderr func(line string)
}

// Process is a running browser
type Process struct {
	cmd        *exec.Cmd
	wsURL      string
	profileDir string
	exited     chan struct{}
	waitErr    error

	stderrMu sync.Mutex
	onStderr func(string)
}

// Args builds the command line for a kiosk browser using profileDir
func Args(profileDir string, kiosk bool, extra ...string) []string {
	args := []string{
		"--remote-debugging-port=0",
		"--user-data-dir=" + profileDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--noerrdialogs",
		"--disable-infobars",
		"--disable-session-crashed-bubble",
		"--disable-translate",
		"--autoplay-policy=no-user-gesture-required",
	}
	if kiosk {
		args = append(args, "--kiosk", "--start-fullscreen")
	}
	args = append(args, extra...)
	return append(args, "about:blank")
}

// Launch starts the browser with a fresh profile and waits for its
// DevTools endpoint
func Launch(ctx context.Context, opts LaunchOptions) (*Process, error) {
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 30 * time.Second
	}
	profileDir := filepath.Join(opts.ProfilesDir, uuid.NewString())
	if err := os.MkdirAll(profileDir, 0o700); err != nil {
		return nil, fmt.Errorf("create browser profile: %w", err)
	}

	// a plain pipe so Wait does not close the read side under the scanner
	stderr, stderrW, err := os.Pipe()
	if err != nil {
		os.RemoveAll(profileDir)
		return nil, err
	}
	cmd := exec.Command(opts.Path, Args(profileDir, opts.Kiosk, opts.ExtraArgs...)...)
	cmd.Stderr = stderrW
	if err := cmd.Start(); err != nil {
		stderr.Close()
		stderrW.Close()
		os.RemoveAll(profileDir)
		return nil, fmt.Errorf("start browser %s: %w", opts.Path, err)
	}
	stderrW.Close()

	p := &Process{
		cmd:        cmd,
		profileDir: profileDir,
		exited:     make(chan struct{}),
		onStderr:   opts.OnStderr,
	}

	endpoint := make(chan string, 1)
	go p.scanStderr(stderr, endpoint)
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()

	timer := time.NewTimer(opts.StartTimeout)
	defer timer.Stop()

	select {
	case url := <-endpoint:
		p.wsURL = url
		return p, nil
	case <-p.exited:
		p.cleanup()
		return nil, fmt.Errorf("browser exited before DevTools was ready: %v", p.waitErr)
	case <-timer.C:
	case <-ctx.Done():
	}
	p.Kill()
	return nil, fmt.Errorf("browser DevTools endpoint not ready after %s", opts.StartTimeout)
}

func (p *Process) scanStderr(r io.ReadCloser, endpoint chan<- string) {
	defer r.Close()
	scanner := bufio.NewScanner(r)
	found := false
	for scanner.Scan() {
		line := scanner.Text()
		if !found {
			if m := devToolsLine.FindStringSubmatch(line); m != nil {
				found = true
				endpoint <- m[1]
			}
			continue
		}
		p.stderrMu.Lock()
		fn := p.onStderr
		p.stderrMu.Unlock()
		if fn != nil {
			fn(line)
		}
	}
}

// SetStderrHandler replaces the stderr line callback
func (p *Process) SetStderrHandler(fn func(string)) {
	p.stderrMu.Lock()
	p.onStderr = fn
	p.stderrMu.Unlock()
}

// WebSocketURL is the browser-level DevTools endpoint
func (p *Process) WebSocketURL() string { return p.wsURL }

// ProfileDir is the throwaway user data directory
func (p *Process) ProfileDir() string { return p.profileDir }

// Exited is closed when the process ends
func (p *Process) Exited() <-chan struct{} { return p.exited }

// Wait blocks until the process exits or timeout passes, reporting which
func (p *Process) Wait(timeout time.Duration) bool {
	select {
	case <-p.exited:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Kill terminates the process and removes its profile
func (p *Process) Kill() {
	select {
	case <-p.exited:
	default:
		p.cmd.Process.Kill()
		<-p.exited
	}
	p.cleanup()
}

func (p *Process) cleanup() {
	os.RemoveAll(p.profileDir)
}

// IsGPUCrash reports whether a browser stderr line announces a GPU process crash
func IsGPUCrash(line string) bool {
	if !strings.Contains(line, "GPU process") {
		return false
	}
	return strings.Contains(line, "exited unexpectedly") ||
		strings.Contains(line, "crashed") ||
		strings.Contains(line, "isn't usable")
}
