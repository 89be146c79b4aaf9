package attendance_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/domain/attendance"
	"github.com/okian/rollcall/internal/domain/cooldown"
	"github.com/okian/rollcall/internal/domain/gallery"
	"github.com/okian/rollcall/internal/domain/matcher"
	"github.com/okian/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var errDiskFull = errors.New("disk full")

type fakeEmitter struct {
	mu     sync.Mutex
	events []model.AttendanceEvent
	fail   error
}

func (f *fakeEmitter) RecordAttendance(_ context.Context, ev model.AttendanceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEmitter) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeEmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fullQueue struct{}

func (fullQueue) Enqueue(model.AttendanceEvent) error {
	return attendance.ErrPendingFull
}

func (fullQueue) TryDequeue() (model.AttendanceEvent, bool) {
	return model.AttendanceEvent{}, false
}

func (fullQueue) Len() int { return 0 }

type fixture struct {
	gallery  *gallery.Gallery
	emitter  *fakeEmitter
	recorder *attendance.Recorder
	aliceID  int64
}

func newFixture(opts ...attendance.Option) fixture {
	g := gallery.New(gallery.WithDimension(3))
	id, err := g.Enroll(context.Background(), gallery.Enrollment{
		ExternalID:  "2024-001",
		DisplayName: "Alice",
		Section:     "A",
		Vector:      []float64{0, 0, 0},
	})
	So(err, ShouldBeNil)

	e := &fakeEmitter{}
	base := []attendance.Option{
		attendance.WithThreshold(0.1),
		attendance.WithWindow(60 * time.Second),
	}
	r := attendance.NewRecorder(g, matcher.Linear{}, cooldown.New(), e, append(base, opts...)...)
	return fixture{gallery: g, emitter: e, recorder: r, aliceID: id}
}

func TestAttemptScenario(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	Convey("Given one enrolled identity at the origin", t, func() {
		f := newFixture()

		Convey("When a close query is presented", func() {
			d, err := f.recorder.Attempt(ctx, []float64{0, 0, 0.05}, "Gate 2", t0)

			Convey("Then it is accepted and emitted once", func() {
				So(err, ShouldBeNil)
				So(d.Outcome, ShouldEqual, attendance.Accepted)
				So(d.InternalID, ShouldEqual, f.aliceID)
				So(d.DisplayName, ShouldEqual, "Alice")
				So(d.Distance, ShouldAlmostEqual, 0.05, 1e-12)
				So(d.Event, ShouldNotBeNil)
				So(d.Event.Location, ShouldEqual, "Gate 2")
				So(d.Event.ID, ShouldNotBeEmpty)
				So(f.emitter.count(), ShouldEqual, 1)
			})

			Convey("And presented again inside the window", func() {
				d2, err := f.recorder.Attempt(ctx, []float64{0, 0, 0.05}, "Gate 2", t0.Add(10*time.Second))

				Convey("Then it is suppressed and nothing more is emitted", func() {
					So(err, ShouldBeNil)
					So(d2.Outcome, ShouldEqual, attendance.Suppressed)
					So(d2.Remaining, ShouldEqual, 50*time.Second)
					So(d2.Event, ShouldBeNil)
					So(f.emitter.count(), ShouldEqual, 1)
				})
			})

			Convey("And presented again after the window", func() {
				d2, err := f.recorder.Attempt(ctx, []float64{0, 0, 0.05}, "Gate 2", t0.Add(61*time.Second))

				Convey("Then it is accepted again", func() {
					So(err, ShouldBeNil)
					So(d2.Outcome, ShouldEqual, attendance.Accepted)
					So(f.emitter.count(), ShouldEqual, 2)
				})
			})
		})

		Convey("When a distant query is presented", func() {
			d, err := f.recorder.Attempt(ctx, []float64{10, 10, 10}, "", t0)

			Convey("Then it is unmatched and nothing is emitted", func() {
				So(err, ShouldBeNil)
				So(d.Outcome, ShouldEqual, attendance.Unmatched)
				So(d.Outcome.String(), ShouldEqual, "unmatched")
				So(f.emitter.count(), ShouldEqual, 0)
			})
		})

		Convey("When no location is given", func() {
			d, err := f.recorder.Attempt(ctx, []float64{0, 0, 0}, "", t0)

			Convey("Then the default location is recorded", func() {
				So(err, ShouldBeNil)
				So(d.Event.Location, ShouldEqual, attendance.DefaultLocation)
			})
		})

		Convey("When the query has the wrong dimension", func() {
			d, err := f.recorder.Attempt(ctx, []float64{0, 0}, "", t0)

			Convey("Then an invalid vector error is returned", func() {
				So(errors.Is(err, model.ErrInvalidVector), ShouldBeTrue)
				So(d.Outcome, ShouldEqual, attendance.Unmatched)
				So(f.emitter.count(), ShouldEqual, 0)
			})
		})
	})
}

func TestAttemptDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	Convey("Given an emitter that fails", t, func() {
		f := newFixture()
		f.emitter.setFail(errDiskFull)

		Convey("When an identity is accepted", func() {
			d, err := f.recorder.Attempt(ctx, []float64{0, 0, 0}, "", t0)

			Convey("Then the decision stays accepted and the event is parked", func() {
				So(d.Outcome, ShouldEqual, attendance.Accepted)
				So(errors.Is(err, attendance.ErrDeliveryFailure), ShouldBeTrue)
				So(errors.Is(err, errDiskFull), ShouldBeTrue)

				var derr *attendance.DeliveryError
				So(errors.As(err, &derr), ShouldBeTrue)
				So(derr.Parked, ShouldBeTrue)
				So(derr.Event.ID, ShouldEqual, d.Event.ID)
				So(f.recorder.Pending(), ShouldEqual, 1)
			})

			Convey("Then the cooldown still applies", func() {
				d2, err := f.recorder.Attempt(ctx, []float64{0, 0, 0}, "", t0.Add(time.Second))
				So(err, ShouldBeNil)
				So(d2.Outcome, ShouldEqual, attendance.Suppressed)
			})

			Convey("And the emitter recovers", func() {
				f.emitter.setFail(nil)
				report, err := f.recorder.Redeliver(ctx)

				Convey("Then Redeliver stores the parked event", func() {
					So(err, ShouldBeNil)
					So(report.Delivered, ShouldEqual, 1)
					So(report.Pending, ShouldEqual, 0)
					So(f.emitter.count(), ShouldEqual, 1)
					So(f.recorder.Pending(), ShouldEqual, 0)
				})
			})

			Convey("And the emitter is still failing", func() {
				report, err := f.recorder.Redeliver(ctx)

				Convey("Then the event stays parked", func() {
					So(errors.Is(err, attendance.ErrDeliveryFailure), ShouldBeTrue)
					So(report.Delivered, ShouldEqual, 0)
					So(report.Pending, ShouldEqual, 1)
				})
			})
		})
	})

	Convey("Given a pending queue that is full", t, func() {
		f := newFixture(attendance.WithPendingQueue(fullQueue{}))
		f.emitter.setFail(errDiskFull)

		Convey("When delivery fails", func() {
			_, err := f.recorder.Attempt(ctx, []float64{0, 0, 0}, "", t0)

			Convey("Then the error reports the event as dropped", func() {
				var derr *attendance.DeliveryError
				So(errors.As(err, &derr), ShouldBeTrue)
				So(derr.Parked, ShouldBeFalse)
				So(err.Error(), ShouldContainSubstring, "dropped")
			})
		})
	})
}

func TestAttemptConcurrent(t *testing.T) {
	Convey("Given many concurrent attempts for one identity", t, func() {
		var seq atomic.Int64
		f := newFixture(attendance.WithIDGenerator(func() string {
			return fmt.Sprintf("ev-%d", seq.Add(1))
		}))
		now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

		var accepted atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, err := f.recorder.Attempt(context.Background(), []float64{0, 0, 0.01}, "", now)
				if err == nil && d.Outcome == attendance.Accepted {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one is accepted and emitted", func() {
			So(accepted.Load(), ShouldEqual, int32(1))
			So(f.emitter.count(), ShouldEqual, 1)
		})
	})
}
