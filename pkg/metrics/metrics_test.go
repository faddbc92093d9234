package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)
			registryOpt := WithPrometheusRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When options carry invalid values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(-1*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be preserved", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "gavel")
				So(manager.subsystem, ShouldEqual, "draft")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestCalculationSink(t *testing.T) {
	Convey("Given a manager used as a calculation sink", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry))

		Convey("When recording a calculation observation", func() {
			err := manager.RecordCalculation("overall_inflation", 250*time.Microsecond, 42, "draft-1")

			Convey("Then it should succeed", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When recording several kinds", func() {
			So(manager.RecordCalculation("percentile", time.Millisecond, 300, ""), ShouldBeNil)
			So(manager.RecordCalculation("classify_tier", time.Millisecond, 300, ""), ShouldBeNil)
			So(manager.RecordCalculation("tier_inflation", 2*time.Millisecond, 512, "draft-9"), ShouldBeNil)
			So(manager.RecordCalculation("budget_depletion", time.Microsecond, 0, "draft-9"), ShouldBeNil)
		})

		Convey("When the kind is empty", func() {
			err := manager.RecordCalculation("", time.Millisecond, 10, "draft-1")

			Convey("Then it should report an unknown kind", func() {
				So(err, ShouldEqual, ErrUnknownKind)
			})
		})
	})
}

func TestBusinessMetricsRecording(t *testing.T) {
	Convey("Given business metrics recording", t, func() {
		Convey("When recording pick counters", func() {
			Convey("Then it should record processed picks", func() {
				So(func() {
					RecordPickProcessed()
					RecordPickProcessed()
					RecordPickProcessed()
				}, ShouldNotPanic)
			})

			Convey("And it should record duplicate picks", func() {
				So(func() {
					RecordPickDuplicate()
					RecordPickDuplicate()
				}, ShouldNotPanic)
			})

			Convey("And it should record published snapshots", func() {
				So(func() {
					RecordSnapshotPublished()
					RecordSnapshotPublished()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording inflation gauges", func() {
			Convey("Then it should update the overall rate", func() {
				So(func() {
					UpdateOverallInflation(0.27)
					UpdateOverallInflation(-0.3)
					UpdateOverallInflation(0)
				}, ShouldNotPanic)
			})

			Convey("And it should update per-tier rates", func() {
				So(func() {
					UpdateTierInflation("ELITE", 0.2)
					UpdateTierInflation("MID", -0.1)
					UpdateTierInflation("LOWER", 0)
				}, ShouldNotPanic)
			})

			Convey("And it should update the depletion multiplier", func() {
				So(func() {
					UpdateDepletionMultiplier(1.0)
					UpdateDepletionMultiplier(1.125)
					UpdateDepletionMultiplier(0.1)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording draft accounting gauges", func() {
			So(func() {
				UpdatePoolSize(480)
				UpdatePurchaseCount(37)
				UpdateBudgetSpent(1240)
				UpdateBudgetRemaining(1360)
			}, ShouldNotPanic)
		})
	})
}

func TestOperationalMetricsRecording(t *testing.T) {
	Convey("Given operational metrics recording", t, func() {
		Convey("When recording queue metrics", func() {
			Convey("Then it should update queue gauges", func() {
				So(func() {
					UpdateQueueSize(1000)
					UpdateQueueCapacity(65536)
					UpdateQueueUtilization(0.015)
				}, ShouldNotPanic)
			})

			Convey("And it should record queue counters", func() {
				So(func() {
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording worker metrics", func() {
			Convey("Then it should update worker gauges", func() {
				So(func() {
					UpdateWorkerCount(8)
					UpdateWorkerActiveCount(3)
					UpdateWorkerIdleCount(5)
				}, ShouldNotPanic)
			})

			Convey("And it should record worker latency and errors", func() {
				So(func() {
					RecordWorkerProcessingLatency(0.8)
					RecordWorkerProcessingLatency(1.5)
					RecordWorkerError()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording store metrics", func() {
			So(func() {
				RecordStoreUpdateLatency(0.2)
				RecordStoreQueryLatency(0.05)
			}, ShouldNotPanic)
		})

		Convey("When recording fanout metrics", func() {
			So(func() {
				UpdateSubscriberCount(12)
				RecordUpstreamPublish()
				RecordUpstreamPublishError()
			}, ShouldNotPanic)
		})

		Convey("When recording component errors", func() {
			So(func() {
				RecordErrorByComponent("queue", "capacity_exceeded")
				RecordErrorByComponent("worker", "store_update")
			}, ShouldNotPanic)
		})
	})
}

func TestHTTPMetricsRecording(t *testing.T) {
	Convey("Given HTTP metrics recording", t, func() {
		Convey("When recording HTTP requests", func() {
			Convey("Then it should record request counts", func() {
				So(func() {
					RecordHTTPRequest("/healthz", "GET", "200")
					RecordHTTPRequest("/api/v1/picks", "POST", "202")
					RecordHTTPRequest("/api/v1/inflation", "GET", "200")
				}, ShouldNotPanic)
			})

			Convey("And it should record request durations", func() {
				So(func() {
					RecordHTTPRequestDuration("/api/v1/inflation", "GET", "200", 1.2)
					RecordHTTPRequestDuration("/api/v1/picks", "POST", "202", 0.4)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestSystemMetricsRecording(t *testing.T) {
	Convey("Given system metrics recording", t, func() {
		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(128 * 1024 * 1024)
				UpdateSystemGoroutineCount(42)
				RecordSystemGCPauseTime(0.35)
			}, ShouldNotPanic)
		})
	})
}

func TestGlobalManager(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When fetching the default manager", func() {
			manager := Default()

			Convey("Then it should be initialized", func() {
				So(manager, ShouldNotBeNil)
			})

			Convey("And it should accept sink observations", func() {
				So(manager.RecordCalculation("percentile", time.Millisecond, 5, "draft-7"), ShouldBeNil)
			})
		})

		Convey("When fetching the registry", func() {
			registry := GetRegistry()

			Convey("Then it should not be nil", func() {
				So(registry, ShouldNotBeNil)
			})

			Convey("And gathering should include gavel metrics", func() {
				RecordPickProcessed()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, fam := range families {
					if fam.GetName() == "gavel_draft_picks_processed_total" {
						found = true
						break
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}
