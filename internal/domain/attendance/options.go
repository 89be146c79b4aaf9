package attendance

import (
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// DefaultLocation is recorded when an attempt names no location.
const DefaultLocation = "Main"

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithThreshold sets the maximum accepted match distance.
func WithThreshold(t float64) Option {
	return func(r *Recorder) {
		r.threshold = t
	}
}

// WithWindow sets the cooldown window. Zero disables suppression.
func WithWindow(d time.Duration) Option {
	return func(r *Recorder) {
		if d >= 0 {
			r.window = d
		}
	}
}

// WithDefaultLocation sets the location used when an attempt names none.
func WithDefaultLocation(loc string) Option {
	return func(r *Recorder) {
		if loc != "" {
			r.defaultLocation = loc
		}
	}
}

// WithPendingQueue sets where undelivered events wait for Redeliver.
func WithPendingQueue(q PendingQueue) Option {
	return func(r *Recorder) {
		if q != nil {
			r.pending = q
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(f func() string) Option {
	return func(r *Recorder) {
		if f != nil {
			r.newID = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}
