package capture

import (
	"fmt"
	"strings"
	"time"
)

// FramePolicy decides which acquired frames are accepted.
type FramePolicy int

const (
	// AcceptFirst takes the first frame the duplication hands out, even
	// when it only carries a pointer update.
	AcceptFirst FramePolicy = iota
	// RequirePresented keeps polling until a frame with a new present
	// arrives or the attempt bound is reached.
	RequirePresented
)

func (p FramePolicy) String() string {
	if p == RequirePresented {
		return "require_presented"
	}
	return "accept_first"
}

// ParseFramePolicy parses the config spelling of a policy.
func ParseFramePolicy(s string) (FramePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "accept_first", "first":
		return AcceptFirst, nil
	case "require_presented", "presented":
		return RequirePresented, nil
	}
	return AcceptFirst, fmt.Errorf("unknown frame policy %q", s)
}

// Options holds the engine knobs. Unset fields fall back to the defaults,
// except AcquireTimeout where zero is a valid setting.
// Start from DefaultOptions when only a few knobs change.
type Options struct {
	// AcquireTimeout is the per-attempt wait passed to AcquireNextFrame.
	AcquireTimeout time.Duration
	// RetryBackoff is the sleep between timed out attempts.
	RetryBackoff time.Duration
	// MaxAcquireAttempts bounds polling per monitor per cycle.
	MaxAcquireAttempts int
	// MaxStreamRebuilds bounds access-lost recoveries per monitor per cycle.
	// Use NoStreamRebuilds to disable recovery.
	MaxStreamRebuilds int
	// CycleBudget bounds the total wall time of one capture cycle.
	CycleBudget time.Duration
	FramePolicy FramePolicy

	// DefaultWhiteLevel is used when the display configuration lookup
	// fails, in nits.
	DefaultWhiteLevel float64
	// ReferenceWhite is the white level SDR content is authored for.
	ReferenceWhite float64
	// ScaleSDR multiplies SDR sources by white/ReferenceWhite.
	ScaleSDR bool
}

const (
	DefaultAcquireTimeout     = 16 * time.Millisecond
	DefaultRetryBackoff       = 20 * time.Millisecond
	DefaultMaxAcquireAttempts = 25
	DefaultMaxStreamRebuilds  = 2
	DefaultCycleBudget        = 750 * time.Millisecond
	DefaultWhiteLevel         = 200.0
	DefaultReferenceWhite     = 80.0

	// NoStreamRebuilds turns access loss into a per-cycle skip.
	NoStreamRebuilds = -1
)

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		AcquireTimeout:     DefaultAcquireTimeout,
		RetryBackoff:       DefaultRetryBackoff,
		MaxAcquireAttempts: DefaultMaxAcquireAttempts,
		MaxStreamRebuilds:  DefaultMaxStreamRebuilds,
		CycleBudget:        DefaultCycleBudget,
		FramePolicy:        AcceptFirst,
		DefaultWhiteLevel:  DefaultWhiteLevel,
		ReferenceWhite:     DefaultReferenceWhite,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AcquireTimeout < 0 {
		o.AcquireTimeout = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = d.RetryBackoff
	}
	if o.MaxAcquireAttempts <= 0 {
		o.MaxAcquireAttempts = d.MaxAcquireAttempts
	}
	switch {
	case o.MaxStreamRebuilds == 0:
		o.MaxStreamRebuilds = d.MaxStreamRebuilds
	case o.MaxStreamRebuilds < 0:
		o.MaxStreamRebuilds = 0
	}
	if o.CycleBudget <= 0 {
		o.CycleBudget = d.CycleBudget
	}
	if o.DefaultWhiteLevel <= 0 {
		o.DefaultWhiteLevel = d.DefaultWhiteLevel
	}
	if o.ReferenceWhite <= 0 {
		o.ReferenceWhite = d.ReferenceWhite
	}
	return o
}
