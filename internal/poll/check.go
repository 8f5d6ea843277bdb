package poll

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const fileScheme = "file://"

// CheckerOptions configures a ReachabilityChecker
type CheckerOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// ReachabilityChecker checks file:// URLs with a stat and everything else
// with an HTTP GET that must answer 200
type ReachabilityChecker struct {
	base *colly.Collector
}

// NewReachabilityChecker creates a checker
func NewReachabilityChecker(opts CheckerOptions) *ReachabilityChecker {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "bigscreen-reachability"
	}
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(opts.Timeout)
	return &ReachabilityChecker{base: c}
}

// Check returns nil when url is reachable
func (r *ReachabilityChecker) Check(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if IsFileURL(rawURL) {
		_, err := os.Stat(FilePath(rawURL))
		return err
	}
	return r.fetch(ctx, rawURL)
}

func (r *ReachabilityChecker) fetch(ctx context.Context, rawURL string) error {
	c := r.base.Clone()
	c.Context = ctx

	status := 0
	var reqErr error
	c.OnResponse(func(resp *colly.Response) {
		status = resp.StatusCode
	})
	c.OnError(func(resp *colly.Response, err error) {
		reqErr = err
		if resp != nil {
			status = resp.StatusCode
		}
	})

	if err := c.Visit(rawURL); err != nil && reqErr == nil {
		reqErr = err
	}
	c.Wait()

	if reqErr != nil {
		return fmt.Errorf("GET %s: %w", rawURL, reqErr)
	}
	if status != 200 {
		return fmt.Errorf("GET %s: status %d", rawURL, status)
	}
	return nil
}

// IsFileURL reports whether rawURL uses the file scheme
func IsFileURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, fileScheme)
}

// FilePath converts a file:// URL to a local path
func FilePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return strings.TrimPrefix(rawURL, fileScheme)
	}
	path := u.Path
	// file:///C:/dir parses to /C:/dir
	if runtime.GOOS == "windows" && len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path)
}
