package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vo2ctl",
			Subsystem: "frames",
			Name:      "decoded_total",
			Help:      "Telemetry frames decoded from the device.",
		},
		[]string{"tag"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vo2ctl",
			Subsystem: "frames",
			Name:      "sent_total",
			Help:      "Command frames written to the device.",
		},
		[]string{"tag"},
	)
	framingErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vo2ctl",
			Name:      "framing_errors_total",
			Help:      "Streams rejected for violating the frame contract.",
		},
	)
	recordingRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vo2ctl",
			Subsystem: "recording",
			Name:      "rows_total",
			Help:      "Rows appended to recording files.",
		},
	)
	recordingWriteErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vo2ctl",
			Subsystem: "recording",
			Name:      "write_errors_total",
			Help:      "Failed recording row writes.",
		},
	)
	recordingsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vo2ctl",
			Name:      "recordings_closed_total",
			Help:      "Recordings closed, by reason.",
		},
		[]string{"reason"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesDecoded,
			framesSent,
			framingErrors,
			recordingRows,
			recordingWriteErrors,
			recordingsClosed,
		)
	})
}

func RecordFrameDecoded(tag string) {
	RegisterMetrics()
	framesDecoded.WithLabelValues(tag).Inc()
}

func RecordFrameSent(tag string) {
	RegisterMetrics()
	framesSent.WithLabelValues(tag).Inc()
}

func RecordFramingError() {
	RegisterMetrics()
	framingErrors.Inc()
}

func RecordRecordingRows(n int) {
	RegisterMetrics()
	recordingRows.Add(float64(n))
}

func RecordRecordingWriteError() {
	RegisterMetrics()
	recordingWriteErrors.Inc()
}

func RecordRecordingClosed(reason string) {
	RegisterMetrics()
	recordingsClosed.WithLabelValues(reason).Inc()
}
