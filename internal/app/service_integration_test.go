package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/adapters/repository"
	service "github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/domain/attendance"
	"github.com/okian/rollcall/internal/domain/gallery"
	"github.com/okian/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var errStorageDown = errors.New("storage down")

// flakyStore fails attendance writes while down is set.
type flakyStore struct {
	*repository.SQLiteStore
	down atomic.Bool
}

func (f *flakyStore) RecordAttendance(ctx context.Context, ev model.AttendanceEvent) error {
	if f.down.Load() {
		return errStorageDown
	}
	return f.SQLiteStore.RecordAttendance(ctx, ev)
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		clock := &testClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
		dbPath := filepath.Join(t.TempDir(), "rollcall.db")
		svc := service.New(
			service.WithDatabasePath(dbPath),
			service.WithDimension(3),
			service.WithThreshold(0.1),
			service.WithCooldownWindow(60*time.Second),
			service.WithClock(clock.Now),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		student, err := svc.Enroll(ctx, gallery.Enrollment{
			ExternalID:  "2024-001",
			DisplayName: "Alice",
			Section:     "A",
			Vector:      []float64{0, 0, 0},
		})
		So(err, ShouldBeNil)

		Convey("When the enrolled identity presents itself", func() {
			d, err := svc.Attempt(ctx, []float64{0, 0, 0.05}, "Gate 1")

			Convey("Then it is accepted and logged", func() {
				So(err, ShouldBeNil)
				So(d.Outcome, ShouldEqual, attendance.Accepted)
				So(d.InternalID, ShouldEqual, student.InternalID)

				rows, err := svc.Attendance(ctx, 10)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(rows[0].StudentID, ShouldEqual, "2024-001")
				So(rows[0].Location, ShouldEqual, "Gate 1")
			})

			Convey("And presents again within the window", func() {
				clock.Advance(20 * time.Second)
				d2, err := svc.Attempt(ctx, []float64{0, 0, 0.05}, "Gate 1")

				Convey("Then it is suppressed and not logged", func() {
					So(err, ShouldBeNil)
					So(d2.Outcome, ShouldEqual, attendance.Suppressed)
					So(d2.Remaining, ShouldEqual, 40*time.Second)

					totals, err := svc.Totals(ctx)
					So(err, ShouldBeNil)
					So(totals.TotalLogs, ShouldEqual, 1)
				})
			})
		})

		Convey("When an unknown vector is presented", func() {
			d, err := svc.Attempt(ctx, []float64{10, 10, 10}, "")

			Convey("Then it is unmatched", func() {
				So(err, ShouldBeNil)
				So(d.Outcome, ShouldEqual, attendance.Unmatched)
			})
		})

		Convey("When the same roll number is enrolled twice", func() {
			_, err := svc.Enroll(ctx, gallery.Enrollment{ExternalID: "2024-001", DisplayName: "Other", Vector: []float64{1, 1, 1}})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, gallery.ErrDuplicateExternalID), ShouldBeTrue)
				students, err := svc.Students(ctx)
				So(err, ShouldBeNil)
				So(students, ShouldHaveLength, 1)
			})
		})

		Convey("When the service restarts on the same database", func() {
			svc.Stop()
			again := service.New(
				service.WithDatabasePath(dbPath),
				service.WithDimension(3),
				service.WithThreshold(0.1),
				service.WithClock(clock.Now),
			)
			So(again.Start(ctx), ShouldBeNil)
			defer again.Stop()

			Convey("Then enrolled identities are matched again", func() {
				d, err := again.Attempt(ctx, []float64{0, 0, 0}, "")
				So(err, ShouldBeNil)
				So(d.Outcome, ShouldEqual, attendance.Accepted)
				So(d.DisplayName, ShouldEqual, "Alice")
			})
		})
	})
}

func TestServiceDeliveryFailure(t *testing.T) {
	Convey("Given a service whose store rejects attendance writes", t, func() {
		sqlite, err := repository.NewSQLiteStore(":memory:")
		So(err, ShouldBeNil)
		defer sqlite.Close()
		store := &flakyStore{SQLiteStore: sqlite}

		svc := service.New(service.WithStore(store), service.WithDimension(3), service.WithThreshold(0.1))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, err = svc.Enroll(ctx, gallery.Enrollment{DisplayName: "Alice", Vector: []float64{0, 0, 0}})
		So(err, ShouldBeNil)
		store.down.Store(true)

		Convey("When attendance is accepted", func() {
			d, err := svc.Attempt(ctx, []float64{0, 0, 0}, "")

			Convey("Then the decision is accepted and the failure is surfaced", func() {
				So(d.Outcome, ShouldEqual, attendance.Accepted)
				So(errors.Is(err, attendance.ErrDeliveryFailure), ShouldBeTrue)
				So(svc.GetStats()["pendingDeliveries"], ShouldEqual, 1)
			})

			Convey("And storage recovers before redelivery", func() {
				store.down.Store(false)
				report, err := svc.Redeliver(ctx)

				Convey("Then the parked event is stored", func() {
					So(err, ShouldBeNil)
					So(report.Delivered, ShouldEqual, 1)
					totals, err := svc.Totals(ctx)
					So(err, ShouldBeNil)
					So(totals.TotalLogs, ShouldEqual, 1)
				})
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a service with several enrolled identities", t, func() {
		svc := service.New(service.WithDimension(2), service.WithThreshold(0.5))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		for i := 0; i < 5; i++ {
			_, err := svc.Enroll(ctx, gallery.Enrollment{DisplayName: "student", Vector: []float64{float64(i * 10), 0}})
			So(err, ShouldBeNil)
		}

		Convey("When every identity is presented by many goroutines at once", func() {
			var accepted atomic.Int32
			var wg sync.WaitGroup
			for g := 0; g < 20; g++ {
				for i := 0; i < 5; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						d, err := svc.Attempt(ctx, []float64{float64(i * 10), 0.1}, "")
						if err == nil && d.Outcome == attendance.Accepted {
							accepted.Add(1)
						}
					}(i)
				}
			}
			wg.Wait()

			Convey("Then each identity is accepted exactly once", func() {
				So(accepted.Load(), ShouldEqual, int32(5))
				totals, err := svc.Totals(ctx)
				So(err, ShouldBeNil)
				So(totals.TotalLogs, ShouldEqual, 5)
			})
		})
	})
}

func TestServiceJanitorFollowsInjectedClock(t *testing.T) {
	Convey("Given a service on a clock far behind wall time with a fast janitor", t, func() {
		clock := &testClock{now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
		svc := service.New(
			service.WithDimension(3),
			service.WithThreshold(0.1),
			service.WithCooldownWindow(60*time.Second),
			service.WithSweepInterval(5*time.Millisecond),
			service.WithClock(clock.Now),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.Enroll(ctx, gallery.Enrollment{DisplayName: "Alice", Vector: []float64{0, 0, 0}})
		So(err, ShouldBeNil)

		first, err := svc.Attempt(ctx, []float64{0, 0, 0}, "")
		So(err, ShouldBeNil)
		So(first.Outcome, ShouldEqual, attendance.Accepted)

		Convey("When several sweeps run before the same instant repeats", func() {
			time.Sleep(50 * time.Millisecond)
			second, err := svc.Attempt(ctx, []float64{0, 0, 0}, "")

			Convey("Then the entry survives and the repeat is suppressed", func() {
				So(err, ShouldBeNil)
				So(second.Outcome, ShouldEqual, attendance.Suppressed)
				So(second.Remaining, ShouldEqual, 60*time.Second)
				So(svc.GetStats()["cooldownEntries"], ShouldEqual, 1)
			})
		})

		Convey("When the injected clock passes the window", func() {
			clock.Advance(61 * time.Second)
			deadline := time.Now().Add(2 * time.Second)
			for svc.GetStats()["cooldownEntries"] != 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}

			Convey("Then the janitor evicts the entry and the next attempt is accepted", func() {
				So(svc.GetStats()["cooldownEntries"], ShouldEqual, 0)
				d, err := svc.Attempt(ctx, []float64{0, 0, 0}, "")
				So(err, ShouldBeNil)
				So(d.Outcome, ShouldEqual, attendance.Accepted)
			})
		})
	})
}
