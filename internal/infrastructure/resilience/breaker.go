package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned while the breaker is rejecting calls
	// outright. The history client surfaces it to tool callers unchanged.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned in half-open state once the probe
	// budget (Settings.MaxRequests) is spent.
	ErrTooManyRequests = errors.New("too many requests")
)

// State is the breaker's admission mode.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings tunes a Breaker for one upstream. The history store runs with a
// small probe budget and a trip threshold of a few consecutive failures;
// zero values fall back to conservative defaults.
type Settings struct {
	// MaxRequests caps concurrent probes while half-open.
	MaxRequests uint32
	// Interval is how often closed-state counts are cleared, so stale
	// failures from hours ago cannot contribute to a trip.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// ReadyToTrip decides, after each closed-state failure, whether the
	// upstream is unhealthy enough to stop calling.
	ReadyToTrip func(counts Counts) bool
	// OnStateChange fires on every transition. The history client logs
	// these so an unreachable store is visible without metrics.
	OnStateChange func(name string, from State, to State)
}

// Counts is the request tally for the current closed/half-open window.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker stops calling an upstream that keeps failing, then probes it
// after a cool-down. Calls are admitted per generation: an outcome that
// arrives after the window it started in has rolled over is discarded
// rather than counted against the new window.
type Breaker struct {
	name     string
	settings Settings

	mu     sync.Mutex
	state  State
	counts Counts
	expiry time.Time
}

// New creates a breaker. Zero-valued settings get defaults: one half-open
// probe, 60s count window, 60s open cool-down, trip after 5 consecutive
// failures.
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Interval == 0 {
		settings.Interval = 60 * time.Second
	}
	if settings.Timeout == 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		expiry:   time.Now().Add(settings.Interval),
	}
}

// Name returns the breaker's upstream label.
func (b *Breaker) Name() string {
	return b.name
}

// State reports the current admission mode, applying any due
// open-to-half-open transition first.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.stateAt(time.Now())
	return state
}

// Counts returns a copy of the tally for the current window.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Execute runs op if the breaker admits it and records the outcome.
// A panic inside op counts as a failure before it propagates.
func (b *Breaker) Execute(op func() (interface{}, error)) (interface{}, error) {
	generation, err := b.admit()
	if err != nil {
		return nil, err
	}

	defer func() {
		if e := recover(); e != nil {
			b.settle(generation, false)
			panic(e)
		}
	}()

	result, err := op()
	b.settle(generation, err == nil)
	return result, err
}

// admit decides whether a call may proceed and stamps it with the current
// generation.
func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.stateAt(now)

	if state == StateOpen {
		return generation, ErrCircuitOpen
	}
	if state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests {
		return generation, ErrTooManyRequests
	}

	b.counts.Requests++
	return generation, nil
}

// settle records a call's outcome. Outcomes from a previous generation are
// dropped: the window they belong to has already been judged.
func (b *Breaker) settle(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.stateAt(now)
	if generation != before {
		return
	}

	if success {
		b.recordSuccess(state, now)
	} else {
		b.recordFailure(state, now)
	}
}

func (b *Breaker) recordSuccess(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
	case StateHalfOpen:
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		// All probes succeeded; the upstream is back.
		if b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
			b.setState(StateClosed, now)
		}
	}
}

func (b *Breaker) recordFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.counts.TotalFailures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
		if b.settings.ReadyToTrip(b.counts) {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		// One failed probe reopens immediately.
		b.setState(StateOpen, now)
	}
}

// stateAt resolves the state as of now, rolling an expired closed window
// or promoting an expired open state to half-open. The expiry doubles as
// the generation stamp. Requires b.mu held.
func (b *Breaker) stateAt(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.counts = Counts{}
			b.expiry = now.Add(b.settings.Interval)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.setState(StateHalfOpen, now)
		}
	}

	return b.state, uint64(b.expiry.UnixNano())
}

// setState transitions and starts a fresh window. Requires b.mu held.
func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.counts = Counts{}

	switch state {
	case StateClosed:
		b.expiry = now.Add(b.settings.Interval)
	case StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
