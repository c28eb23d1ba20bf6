package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/wallarena/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DataDir, convey.ShouldEqual, "data")
			convey.So(cfg.DBPath, convey.ShouldEqual, "")
			convey.So(cfg.BackfillQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.DuplicateThreshold, convey.ShouldEqual, 10)
			convey.So(cfg.BucketPrefixLen, convey.ShouldEqual, 4)
			convey.So(cfg.NeighborhoodPrefixLen, convey.ShouldEqual, 3)
			convey.So(cfg.RatingWindow, convey.ShouldEqual, 400)
			convey.So(cfg.RatingFloorEnabled, convey.ShouldBeFalse)
			convey.So(cfg.RecentWindow, convey.ShouldEqual, 50)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
		})
	})
}
