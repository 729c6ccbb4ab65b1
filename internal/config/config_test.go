package config_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/okian/statwatch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "statwatch.db")
			convey.So(cfg.ProviderBaseURL, convey.ShouldEqual, "https://players.tarkov.dev")
			convey.So(cfg.PollIntervalMinutes, convey.ShouldEqual, 24*60)
			convey.So(cfg.ReconcileIntervalMinutes, convey.ShouldEqual, 10)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.TopSkillChanges, convey.ShouldEqual, 5)
		})
	})
}
