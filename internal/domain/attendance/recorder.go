// Package attendance turns a presented feature vector into an attendance
// decision: match, cool down, then emit.
package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rollcall/internal/domain/cooldown"
	"github.com/okian/rollcall/internal/domain/gallery"
	"github.com/okian/rollcall/internal/domain/matcher"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

const (
	defaultThreshold = 0.6
	defaultWindow    = 60 * time.Second
)

// Outcome classifies an attempt.
type Outcome int

const (
	Unmatched Outcome = iota
	Accepted
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return metrics.OutcomeAccepted
	case Suppressed:
		return metrics.OutcomeSuppressed
	default:
		return metrics.OutcomeUnmatched
	}
}

// Decision is the result of one Attempt.
type Decision struct {
	Outcome     Outcome
	InternalID  int64
	ExternalID  string
	DisplayName string
	Section     string
	Distance    float64
	Remaining   time.Duration          // set when Suppressed
	Event       *model.AttendanceEvent // set when Accepted
}

// Emitter persists accepted attendance events.
type Emitter interface {
	RecordAttendance(ctx context.Context, ev model.AttendanceEvent) error
}

// Gallery is the read side of the identity gallery.
type Gallery interface {
	Snapshot() *gallery.Snapshot
	Dimension() int
}

// RedeliveryReport summarizes one Redeliver call.
type RedeliveryReport struct {
	Delivered int `json:"delivered"`
	Pending   int `json:"pending"`
}

// Recorder orchestrates matching, cooldown and emission.
type Recorder struct {
	gallery  Gallery
	matcher  matcher.Matcher
	cooldown *cooldown.Cache
	emitter  Emitter
	pending  PendingQueue

	threshold       float64
	window          time.Duration
	defaultLocation string
	newID           func() string
	logger          logger.Logger

	redeliverMu sync.Mutex
}

// NewRecorder wires a recorder around its collaborators.
func NewRecorder(g Gallery, m matcher.Matcher, c *cooldown.Cache, e Emitter, opts ...Option) *Recorder {
	r := &Recorder{
		gallery:         g,
		matcher:         m,
		cooldown:        c,
		emitter:         e,
		pending:         &slicePending{},
		threshold:       defaultThreshold,
		window:          defaultWindow,
		defaultLocation: DefaultLocation,
		newID:           uuid.NewString,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the acceptance threshold.
func (r *Recorder) Threshold() float64 { return r.threshold }

// Window returns the cooldown window.
func (r *Recorder) Window() time.Duration { return r.window }

// Attempt decides whether query is an attendance at location and time now.
// An invalid query is an error and no matching happens. When the emitter
// fails the decision is still Accepted and the returned *DeliveryError
// describes the parked event.
func (r *Recorder) Attempt(ctx context.Context, query []float64, location string, now time.Time) (Decision, error) {
	if err := model.ValidateVector(query, r.gallery.Dimension()); err != nil {
		metrics.RecordAttempt(metrics.OutcomeInvalid)
		return Decision{}, err
	}
	if location == "" {
		location = r.defaultLocation
	}

	snap := r.gallery.Snapshot()
	start := time.Now()
	out := r.matcher.Match(query, snap, r.threshold)
	metrics.RecordMatchLatency(float64(time.Since(start).Microseconds()) / 1000.0)

	if !out.Matched {
		metrics.RecordAttempt(metrics.OutcomeUnmatched)
		return Decision{Outcome: Unmatched}, nil
	}
	metrics.RecordMatchDistance(out.Distance)

	identity, ok := snap.Lookup(out.InternalID)
	if !ok {
		// A matcher only returns ids from the snapshot it was handed.
		metrics.RecordAttempt(metrics.OutcomeUnmatched)
		return Decision{Outcome: Unmatched}, nil
	}

	d := Decision{
		InternalID:  identity.InternalID,
		ExternalID:  identity.ExternalID,
		DisplayName: identity.DisplayName,
		Section:     identity.Section,
		Distance:    out.Distance,
	}

	res := r.cooldown.TryAccept(identity.InternalID, now, r.window)
	if !res.Accepted {
		d.Outcome = Suppressed
		d.Remaining = res.Remaining
		metrics.RecordAttempt(metrics.OutcomeSuppressed)
		r.logger.Debug(ctx, "attendance suppressed",
			logger.Int64("internalID", identity.InternalID),
			logger.Duration("remaining", res.Remaining),
		)
		return d, nil
	}

	ev := model.NewAttendanceEvent(r.newID(), identity, location, now)
	d.Outcome = Accepted
	d.Event = &ev
	metrics.RecordAttempt(metrics.OutcomeAccepted)

	if err := r.emitter.RecordAttendance(ctx, ev); err != nil {
		return d, r.park(ctx, ev, err)
	}

	r.logger.Info(ctx, "attendance recorded",
		logger.String("eventID", ev.ID),
		logger.Int64("internalID", ev.InternalID),
		logger.String("location", ev.Location),
	)
	return d, nil
}

func (r *Recorder) park(ctx context.Context, ev model.AttendanceEvent, cause error) *DeliveryError {
	metrics.RecordDeliveryFailure()
	derr := &DeliveryError{Event: ev, Err: cause}
	if err := r.pending.Enqueue(ev); err != nil {
		metrics.RecordPendingDropped()
		r.logger.Error(ctx, "attendance delivery failed and event was dropped",
			logger.String("eventID", ev.ID),
			logger.Error(cause),
			logger.String("queueError", err.Error()),
		)
		return derr
	}
	derr.Parked = true
	r.logger.Warn(ctx, "attendance delivery failed, event parked",
		logger.String("eventID", ev.ID),
		logger.Error(cause),
	)
	return derr
}

// Pending returns the number of events waiting for Redeliver.
func (r *Recorder) Pending() int {
	return r.pending.Len()
}

// Redeliver retries every parked event once. It stops at the first failure,
// keeps that event parked and returns a *DeliveryError.
func (r *Recorder) Redeliver(ctx context.Context) (RedeliveryReport, error) {
	r.redeliverMu.Lock()
	defer r.redeliverMu.Unlock()

	var report RedeliveryReport
	n := r.pending.Len()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			report.Pending = r.pending.Len()
			return report, err
		}
		ev, ok := r.pending.TryDequeue()
		if !ok {
			break
		}
		if err := r.emitter.RecordAttendance(ctx, ev); err != nil {
			derr := r.park(ctx, ev, err)
			report.Pending = r.pending.Len()
			metrics.RecordRedelivered(report.Delivered)
			return report, derr
		}
		report.Delivered++
	}
	report.Pending = r.pending.Len()
	metrics.RecordRedelivered(report.Delivered)
	if report.Delivered > 0 {
		r.logger.Info(ctx, "redelivered parked attendance",
			logger.Int("delivered", report.Delivered),
			logger.Int("pending", report.Pending),
		)
	}
	return report, nil
}
