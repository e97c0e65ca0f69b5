package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("p"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithRefreshInterval(time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it registers its collectors there", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				manager.ticks.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_p_ticks_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording evictions", func() {
			before := testutil.ToFloat64(globalManager.evictions.WithLabelValues("capacity"))
			RecordEviction("capacity", 2)
			RecordEviction("capacity", 0)

			Convey("Then only positive counts are added", func() {
				So(testutil.ToFloat64(globalManager.evictions.WithLabelValues("capacity")), ShouldEqual, before+2)
			})
		})

		Convey("When recording focus changes", func() {
			before := testutil.ToFloat64(globalManager.focusChanges.WithLabelValues("gained"))
			RecordFocusChange(true)

			Convey("Then the gained counter moves", func() {
				So(testutil.ToFloat64(globalManager.focusChanges.WithLabelValues("gained")), ShouldEqual, before+1)
			})
		})

		Convey("When recording the rest of the helpers", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordTick(time.Millisecond)
					RecordTickFailure("process")
					UpdateCandidatesLive(3)
					RecordCandidateAdded()
					RecordRaysCast(5)
					RecordZeroBounds()
					UpdateFocusedScore(0.5)
					RecordFocusEventDropped()
					RecordCalibrationCommand("collect", "success", 175*time.Millisecond)
					RecordCalibrationCommand("collect", "failure", -1)
					RecordCalibrationRejected()
					UpdateCalibrationRunning(true)
					RecordCalibrationStop("joined")
					RecordHTTPRequest("/focus", "GET", "200")
					RecordHTTPRequestDuration("/focus", "GET", "200", 1)
					RecordErrorByComponent("api", "bad_request")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(4)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then the engine namespace is present", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "gazefocus_engine_ticks_total")
			})
		})
	})
}
