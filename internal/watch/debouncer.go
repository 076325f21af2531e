package watch

import (
	"context"
	"time"

	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
)

// DebouncerConfig tunes request coalescing.
type DebouncerConfig struct {
	// QuietWindow is how long requests must pause before a trigger fires.
	QuietWindow time.Duration
	// MaxDelay bounds how long a steady stream of requests can postpone a trigger.
	MaxDelay time.Duration
}

// Trigger summarizes the requests coalesced into one rebuild.
type Trigger struct {
	RequestCount int
	LastReason   string
	FirstRequest time.Time
	LastRequest  time.Time
	// Cause is "quiet" or "max_delay".
	Cause string
}

// Debouncer coalesces bursts of rebuild requests into single triggers.
// Request is safe for concurrent use; Run must be called once.
type Debouncer struct {
	cfg      DebouncerConfig
	requests chan request
}

type request struct {
	reason string
	at     time.Time
}

// NewDebouncer validates cfg and returns a Debouncer.
func NewDebouncer(cfg DebouncerConfig) (*Debouncer, error) {
	if cfg.QuietWindow <= 0 {
		return nil, ferrors.ValidationError("quiet window must be > 0").Build()
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * cfg.QuietWindow
	}
	if cfg.MaxDelay < cfg.QuietWindow {
		return nil, ferrors.ValidationError("max delay must not be shorter than the quiet window").Build()
	}
	return &Debouncer{cfg: cfg, requests: make(chan request, 64)}, nil
}

// Request asks for a rebuild. When the request buffer is full the request is
// dropped; a trigger is already guaranteed.
func (d *Debouncer) Request(reason string) {
	select {
	case d.requests <- request{reason: reason, at: time.Now()}:
	default:
	}
}

// Run coalesces requests and calls emit for each trigger until ctx is done.
func (d *Debouncer) Run(ctx context.Context, emit func(Trigger)) {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()
	defer quietTimer.Stop()
	defer maxTimer.Stop()

	var (
		quietC  <-chan time.Time
		maxC    <-chan time.Time
		pending Trigger
	)

	fire := func(cause string) {
		pending.Cause = cause
		emit(pending)
		pending = Trigger{}
		quietC, maxC = nil, nil
		quietTimer.Stop()
		maxTimer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.requests:
			if pending.RequestCount == 0 {
				pending.FirstRequest = req.at
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}
			pending.RequestCount++
			pending.LastReason = req.reason
			pending.LastRequest = req.at
			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
		case <-quietC:
			fire("quiet")
		case <-maxC:
			fire("max_delay")
		}
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
