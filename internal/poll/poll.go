// Package poll checks whether a URL is reachable and retries on a fixed
// delay until told to stop. At most one retry timer is pending at a time.
package poll

import (
	"context"
	"sync"
	"time"

	"bigscreen/internal/infrastructure/logging"
)

// DefaultDelay is the fixed wait between attempts
const DefaultDelay = time.Second

// Callback receives retry, which schedules another attempt with the same
// arguments. Not calling it ends the sequence.
type Callback func(retry func())

// Timer is a pending scheduled call
type Timer interface {
	Stop() bool
}

// Clock schedules calls; tests swap in a manual clock
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Checker decides whether url is reachable
type Checker interface {
	Check(ctx context.Context, url string) error
}

// Options configures a Poller
type Options struct {
	Clock   Clock
	Delay   time.Duration
	Checker Checker
	Logger  logging.Logger
}

// Poller runs reachability checks. Every Poll or CallPollAfterTimeout
// supersedes whatever came before it; Cancel supersedes everything.
type Poller struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	checker Checker
	logger  logging.Logger

	timer Timer
	gen   uint64
	// abort cancels the check started by the current sequence
	abort context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Poller; zero options get the real clock, DefaultDelay and
// a ReachabilityChecker
func New(opts Options) *Poller {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Checker == nil {
		opts.Checker = NewReachabilityChecker(CheckerOptions{})
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDefaultLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		clock:   opts.Clock,
		delay:   opts.Delay,
		checker: opts.Checker,
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Poll checks url now and invokes onSuccess or onFailure with a retry
// continuation. Any pending timer is cancelled.
func (p *Poller) Poll(url string, onSuccess, onFailure Callback) {
	p.mu.Lock()
	p.stopTimerLocked()
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	p.start(gen, url, onSuccess, onFailure)
}

// CallPollAfterTimeout schedules Poll after the fixed delay, replacing any
// timer already pending
func (p *Poller) CallPollAfterTimeout(url string, onSuccess, onFailure Callback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduleLocked(url, onSuccess, onFailure)
}

// Cancel drops the pending timer and aborts the check in flight; its
// result is discarded
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
	p.abortLocked()
	p.gen++
}

// Close cancels everything. The Poller cannot be used afterwards.
func (p *Poller) Close() {
	p.Cancel()
	p.cancel()
}

func (p *Poller) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen == gen
}

func (p *Poller) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Poller) abortLocked() {
	if p.abort != nil {
		p.abort()
		p.abort = nil
	}
}

func (p *Poller) scheduleLocked(url string, onSuccess, onFailure Callback) {
	p.stopTimerLocked()
	p.gen++
	gen := p.gen
	p.timer = p.clock.AfterFunc(p.delay, func() {
		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			return
		}
		p.timer = nil
		p.mu.Unlock()
		p.start(gen, url, onSuccess, onFailure)
	})
}

func (p *Poller) start(gen uint64, url string, onSuccess, onFailure Callback) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.abortLocked()
	ctx, abort := context.WithCancel(p.ctx)
	p.abort = abort
	p.mu.Unlock()

	go func() {
		err := p.checker.Check(ctx, url)
		abort()
		if !p.current(gen) {
			return
		}

		retry := func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.gen != gen {
				return
			}
			p.scheduleLocked(url, onSuccess, onFailure)
		}

		if err != nil {
			p.logger.Debug("URL unreachable", "url", url, "error", err)
			onFailure(retry)
			return
		}
		onSuccess(retry)
	}()
}
