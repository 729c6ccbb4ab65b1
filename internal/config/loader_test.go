package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/okian/statwatch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "statwatch.db")
				convey.So(cfg.PollIntervalMinutes, convey.ShouldEqual, 24*60)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("STATWATCH_ADDR", ":8080")
			_ = os.Setenv("STATWATCH_DB_PATH", "/var/lib/statwatch/state.db")
			_ = os.Setenv("STATWATCH_WORKER_COUNT", "16")
			_ = os.Setenv("STATWATCH_POLL_INTERVAL_MINUTES", "60")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/var/lib/statwatch/state.db")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.PollIntervalMinutes, convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
db_path: "file.db"
worker_count: 4
reconcile_interval_minutes: 5
display_category: "squad stats"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STATWATCH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBPath, convey.ShouldEqual, "file.db")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.ReconcileIntervalMinutes, convey.ShouldEqual, 5)
				convey.So(cfg.DisplayCategory, convey.ShouldEqual, "squad stats")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
worker_count: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STATWATCH_CONFIG", tmpFile)
			_ = os.Setenv("STATWATCH_ADDR", ":8080") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080") // Overridden by env
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4) // From file
			})
		})

		convey.Convey("When loading config with an empty addr", func() {
			yamlContent := `
addr: ""
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STATWATCH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a zero poll interval", func() {
			_ = os.Setenv("STATWATCH_POLL_INTERVAL_MINUTES", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "poll_interval_minutes")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"STATWATCH_CONFIG",
		"STATWATCH_ADDR",
		"STATWATCH_DB_PATH",
		"STATWATCH_WORKER_COUNT",
		"STATWATCH_POLL_INTERVAL_MINUTES",
		"STATWATCH_RECONCILE_INTERVAL_MINUTES",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "statwatch-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
