package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SamplesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rig_samples_total",
		Help: "Total samples acquired from the DAQ driver",
	})

	DeviceErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rig_device_errors_total",
		Help: "Total failed or timed-out driver reads",
	})

	WarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rig_warnings_total",
		Help: "Warnings raised during sessions, by kind",
	}, []string{"kind"})

	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rig_verdicts_total",
		Help: "Finalized session verdicts, by outcome",
	}, []string{"verdict"})

	RejectedCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rig_rejected_commands_total",
		Help: "State-machine events rejected as illegal transitions",
	}, []string{"event"})

	SessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rig_session_state",
		Help: "Current operational state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	ChannelPower = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rig_channel_power_percent",
		Help: "Live trailing-window on-time percentage per channel",
	}, []string{"channel"})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rig_tick_duration_seconds",
		Help:    "Wall time of one sampling tick including driver read",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	SnapshotsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rig_snapshots_dropped_total",
		Help: "Tick snapshots dropped because a presenter could not keep up",
	})

	ReportWritesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rig_report_writes_failed_total",
		Help: "Report sink write failures",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rig_http_requests_total",
		Help: "HTTP requests by method, path template and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rig_http_request_duration_seconds",
		Help:    "HTTP request latency by method and path template",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
