package config_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MatchThreshold, convey.ShouldEqual, 0.6)
			convey.So(cfg.CooldownWindow(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.VectorDimension, convey.ShouldEqual, 128)
			convey.So(cfg.Matcher, convey.ShouldEqual, "linear")
			convey.So(cfg.DefaultLocation, convey.ShouldEqual, "Main")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid setting", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"addr", func(c *config.Config) { c.Addr = "" }},
			{"database_path", func(c *config.Config) { c.DatabasePath = "" }},
			{"match_threshold", func(c *config.Config) { c.MatchThreshold = -0.1 }},
			{"nan threshold", func(c *config.Config) { c.MatchThreshold = math.NaN() }},
			{"cooldown_window_seconds", func(c *config.Config) { c.CooldownWindowSeconds = -1 }},
			{"vector_dimension", func(c *config.Config) { c.VectorDimension = 0 }},
			{"cooldown_shards", func(c *config.Config) { c.CooldownShards = 0 }},
			{"cooldown_sweep_interval_seconds", func(c *config.Config) { c.CooldownSweepIntervalSeconds = -5 }},
			{"pending_queue_size", func(c *config.Config) { c.PendingQueueSize = 0 }},
			{"max_attendance_limit", func(c *config.Config) { c.MaxAttendanceLimit = 0 }},
			{"matcher", func(c *config.Config) { c.Matcher = "kdtree" }},
			{"log_format", func(c *config.Config) { c.LogFormat = "xml" }},
		}

		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+tc.name+" should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then a zero cooldown window is allowed", func() {
			cfg := config.New()
			cfg.CooldownWindowSeconds = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
