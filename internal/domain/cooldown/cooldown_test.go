package cooldown_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/domain/cooldown"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTryAccept(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	window := 60 * time.Second

	Convey("Given an empty cooldown cache", t, func() {
		c := cooldown.New()

		Convey("When an identity is seen for the first time", func() {
			res := c.TryAccept(7, t0, window)

			Convey("Then it is accepted and tracked", func() {
				So(res.Accepted, ShouldBeTrue)
				So(res.Remaining, ShouldEqual, time.Duration(0))
				So(c.Len(), ShouldEqual, 1)
				last, ok := c.LastAccepted(7)
				So(ok, ShouldBeTrue)
				So(last, ShouldEqual, t0)
			})
		})

		Convey("When the same identity returns inside the window", func() {
			c.TryAccept(7, t0, window)
			res := c.TryAccept(7, t0.Add(window-time.Second), window)

			Convey("Then it is suppressed with the time left", func() {
				So(res.Accepted, ShouldBeFalse)
				So(res.Remaining, ShouldEqual, time.Second)
				So(res.SecondsRemaining(), ShouldEqual, 1)
			})

			Convey("Then the suppressed attempt does not extend the window", func() {
				last, _ := c.LastAccepted(7)
				So(last, ShouldEqual, t0)
			})
		})

		Convey("When the same identity returns after the window", func() {
			c.TryAccept(7, t0, window)
			res := c.TryAccept(7, t0.Add(window+time.Second), window)

			Convey("Then it is accepted again", func() {
				So(res.Accepted, ShouldBeTrue)
				last, _ := c.LastAccepted(7)
				So(last, ShouldEqual, t0.Add(window+time.Second))
			})
		})

		Convey("When exactly one window has elapsed", func() {
			c.TryAccept(7, t0, window)
			res := c.TryAccept(7, t0.Add(window), window)

			Convey("Then it is accepted", func() {
				So(res.Accepted, ShouldBeTrue)
			})
		})

		Convey("When the clock goes backwards", func() {
			c.TryAccept(7, t0, window)
			res := c.TryAccept(7, t0.Add(-10*time.Second), window)

			Convey("Then it is suppressed for at most one window", func() {
				So(res.Accepted, ShouldBeFalse)
				So(res.Remaining, ShouldEqual, window)
			})
		})

		Convey("When the window is zero", func() {
			first := c.TryAccept(7, t0, 0)
			second := c.TryAccept(7, t0, 0)

			Convey("Then every attempt is accepted", func() {
				So(first.Accepted, ShouldBeTrue)
				So(second.Accepted, ShouldBeTrue)
				So(c.Len(), ShouldEqual, 1)
			})
		})

		Convey("When distinct identities arrive at the same instant", func() {
			accepted := 0
			for id := int64(1); id <= 100; id++ {
				if c.TryAccept(id, t0, window).Accepted {
					accepted++
				}
			}

			Convey("Then none suppresses another", func() {
				So(accepted, ShouldEqual, 100)
				So(c.Len(), ShouldEqual, 100)
			})
		})
	})
}

func TestTryAcceptConcurrent(t *testing.T) {
	Convey("Given many goroutines presenting the same identity", t, func() {
		c := cooldown.New(cooldown.WithShards(4))
		now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

		const workers = 64
		var accepted atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if c.TryAccept(42, now, time.Minute).Accepted {
					accepted.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		Convey("Then exactly one attempt is accepted", func() {
			So(accepted.Load(), ShouldEqual, int32(1))
		})
	})
}

func TestSweep(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	window := time.Minute

	Convey("Given a cache with old and fresh entries", t, func() {
		c := cooldown.New()
		c.TryAccept(1, t0, window)
		c.TryAccept(2, t0.Add(30*time.Second), window)

		Convey("When sweeping one window after the first entry", func() {
			removed := c.Sweep(t0.Add(window), window)

			Convey("Then only the expired entry is evicted", func() {
				So(removed, ShouldEqual, 1)
				So(c.Len(), ShouldEqual, 1)
				_, ok := c.LastAccepted(1)
				So(ok, ShouldBeFalse)
			})

			Convey("Then the fresh entry is still suppressed", func() {
				res := c.TryAccept(2, t0.Add(window), window)
				So(res.Accepted, ShouldBeFalse)
				So(res.Remaining, ShouldEqual, 30*time.Second)
			})
		})
	})
}

func TestJanitor(t *testing.T) {
	Convey("Given a cache with a running janitor", t, func() {
		var nowNanos atomic.Int64
		t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
		nowNanos.Store(t0.UnixNano())
		clock := cooldown.ClockFunc(func() time.Time { return time.Unix(0, nowNanos.Load()).UTC() })

		c := cooldown.New(cooldown.WithClock(clock))
		c.TryAccept(9, t0, time.Second)
		c.StartJanitor(context.Background(), 5*time.Millisecond, time.Second)
		c.StartJanitor(context.Background(), 5*time.Millisecond, time.Second)

		Convey("When the clock passes the window", func() {
			nowNanos.Store(t0.Add(2 * time.Second).UnixNano())

			Convey("Then the entry is swept and Close stops the goroutine", func() {
				deadline := time.Now().Add(2 * time.Second)
				for c.Len() > 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(c.Len(), ShouldEqual, 0)
				So(c.Close(), ShouldBeNil)
			})
		})
	})

	Convey("Given a janitor bound to a context", t, func() {
		c := cooldown.New()
		ctx, cancel := context.WithCancel(context.Background())
		c.StartJanitor(ctx, time.Millisecond, time.Second)

		Convey("When the context is cancelled", func() {
			cancel()

			Convey("Then Close returns once the goroutine exits", func() {
				So(c.Close(), ShouldBeNil)
				So(c.Close(), ShouldBeNil)
			})
		})
	})
}
