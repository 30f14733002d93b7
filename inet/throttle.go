package inet

import "time"

// Default throttle constants, per the linear-decay model: a message may be
// released when the current weight drops below burst; releasing one adds
// increment to the weight measured at the moment of release.
const (
	DefaultThrottleK         = -1.2
	DefaultThrottleBurst     = 3.0
	DefaultThrottleIncrement = 1.0
)

// Throttle implements the linear-decay send-rate model: weight decays at a
// constant rate k (message-weight per second) from the last recorded send,
// and a message may be released only while the decayed weight is still
// below burst. The zero value is usable once K/Burst/Increment are set to
// the defaults above (NewThrottle does this).
//
// The decision to release is a pure function of (now, lastSend, weight,
// increment, burst) so it can be driven deterministically in tests by
// passing an explicit `now` rather than reading the clock.
type Throttle struct {
	K         float64
	Burst     float64
	Increment float64

	m0 float64
	t0 time.Time
	// set once the first weight has been recorded; before that weight()
	// short-circuits to 0 regardless of the zero time.Time in t0.
	started bool
}

// NewThrottle creates a Throttle with the constants from spec section 4.5.
func NewThrottle() *Throttle {
	return &Throttle{
		K:         DefaultThrottleK,
		Burst:     DefaultThrottleBurst,
		Increment: DefaultThrottleIncrement,
	}
}

// Weight returns the current decayed weight m(now).
func (t *Throttle) Weight(now time.Time) float64 {
	if !t.started {
		return 0
	}

	m := t.m0 + t.K*now.Sub(t.t0).Seconds()
	if m < 0 {
		m = 0
	}
	return m
}

// CanSend reports whether a message may be released at time now.
func (t *Throttle) CanSend(now time.Time) bool {
	return t.Weight(now) < t.Burst
}

// Record marks a release at time now, updating the weight and last-send
// timestamp used by subsequent Weight/CanSend calls.
func (t *Throttle) Record(now time.Time) {
	t.m0 = t.Weight(now) + t.Increment
	t.t0 = now
	t.started = true
}
