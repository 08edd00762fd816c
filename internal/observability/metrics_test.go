package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/vo2ctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(framesSent.WithLabelValues("cycle"))
	RecordFrameSent("cycle")
	RecordFrameDecoded("voltage")
	RecordFramingError()
	RecordRecordingRows(3)
	RecordRecordingWriteError()
	RecordRecordingClosed("expired")

	if got := testutil.ToFloat64(framesSent.WithLabelValues("cycle")); got != before+1 {
		t.Fatalf("frames sent got=%v want=%v", got, before+1)
	}
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	testlog.Start(t)
	RecordFrameDecoded("button")

	rec := httptest.NewRecorder()
	MetricsHandler(zerolog.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `vo2ctl_frames_decoded_total{tag="button"}`) {
		t.Fatalf("expected decoded counter in scrape output")
	}
}
