package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/gazefocus/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the engine defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.RaysPerSecond, convey.ShouldEqual, 900)
			convey.So(cfg.MinRaysPerTick, convey.ShouldEqual, 3)
			convey.So(cfg.MaxRaysPerTick, convey.ShouldEqual, 15)
			convey.So(cfg.CandidateMemorySeconds, convey.ShouldEqual, 1)
			convey.So(cfg.CalibrationJoinTimeoutMS, convey.ShouldEqual, 5000)
			convey.So(cfg.Points(), convey.ShouldResemble, config.DefaultCalibrationPoints)
			convey.So(cfg.SimulateCalibration, convey.ShouldBeTrue)
			convey.So(cfg.SweepPeriod(), convey.ShouldEqual, 8*time.Second)
			convey.So(cfg.TickInterval(), convey.ShouldEqual, time.Second/90)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Capacity, convey.ShouldEqual, 64)
				convey.So(cfg.TickHz, convey.ShouldEqual, 90)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GAZEFOCUS_ADDR", ":8080")
			_ = os.Setenv("GAZEFOCUS_CAPACITY", "8")
			_ = os.Setenv("GAZEFOCUS_MAX_RAYS_PER_TICK", "20")
			_ = os.Setenv("GAZEFOCUS_FOCUS_EPSILON", "0.05")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Capacity, convey.ShouldEqual, 8)
				convey.So(cfg.MaxRaysPerTick, convey.ShouldEqual, 20)
				convey.So(cfg.FocusEpsilon, convey.ShouldEqual, 0.05)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(t, `
tick_hz: 60
capacity: 16
rays_per_second: 600
calibration_points:
  - {x: 0.1, y: 0.2, z: 1.0}
`)
			_ = os.Setenv("GAZEFOCUS_CONFIG", tmpFile)
			_ = os.Setenv("GAZEFOCUS_CAPACITY", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over the file and the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.TickHz, convey.ShouldEqual, 60)
				convey.So(cfg.Capacity, convey.ShouldEqual, 32)
				convey.So(cfg.RaysPerSecond, convey.ShouldEqual, 600)
				convey.So(cfg.Points(), convey.ShouldResemble, []config.Point3{{X: 0.1, Y: 0.2, Z: 1.0}})
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("GAZEFOCUS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the ray bounds are inverted", func() {
			_ = os.Setenv("GAZEFOCUS_MIN_RAYS_PER_TICK", "10")
			_ = os.Setenv("GAZEFOCUS_MAX_RAYS_PER_TICK", "4")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the scorer cone is a hemisphere", func() {
			_ = os.Setenv("GAZEFOCUS_SCORER_HALF_ANGLE_DEG", "90")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When calibration simulation is disabled by env", func() {
			_ = os.Setenv("GAZEFOCUS_SIMULATE_CALIBRATION", "false")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the flag is cleared", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SimulateCalibration, convey.ShouldBeFalse)
			})
		})
	})
}

func TestReadLicense(t *testing.T) {
	convey.Convey("Given a license file", t, func() {
		path := filepath.Join(t.TempDir(), "license.bin")
		convey.So(os.WriteFile(path, []byte("blob"), 0o600), convey.ShouldBeNil)

		cfg := config.New()
		cfg.LicenseFile = path
		b, err := cfg.ReadLicense()

		convey.So(err, convey.ShouldBeNil)
		convey.So(string(b), convey.ShouldEqual, "blob")

		convey.Convey("And an empty path yields no license", func() {
			cfg.LicenseFile = ""
			b, err := cfg.ReadLicense()
			convey.So(err, convey.ShouldBeNil)
			convey.So(b, convey.ShouldBeNil)
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"GAZEFOCUS_CONFIG", "GAZEFOCUS_ADDR", "GAZEFOCUS_CAPACITY",
		"GAZEFOCUS_MAX_RAYS_PER_TICK", "GAZEFOCUS_MIN_RAYS_PER_TICK", "GAZEFOCUS_FOCUS_EPSILON",
		"GAZEFOCUS_SCORER_HALF_ANGLE_DEG", "GAZEFOCUS_SIMULATE_CALIBRATION",
	} {
		_ = os.Unsetenv(k)
	}
}
