package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/projects", "200"))
	RecordHTTPRequest("GET", "/api/projects", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/projects", "200"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}

	RecordHTTPRequest("GET", "", 404, time.Millisecond)
	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")); got < 1 {
		t.Fatalf("expected unmatched route label, got %v", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(HTTPActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(HTTPActiveRequests) - start; got != 1 {
		t.Fatalf("expected 1 active request, got %v", got)
	}
	TrackActiveRequest(false)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(UploadBytes)
	RecordUpload(2048)
	if got := testutil.ToFloat64(UploadBytes) - before; got != 2048 {
		t.Fatalf("upload bytes = %v", got)
	}

	beforeLogin := testutil.ToFloat64(LoginAttempts.WithLabelValues("invalid"))
	RecordLogin("invalid")
	if got := testutil.ToFloat64(LoginAttempts.WithLabelValues("invalid")) - beforeLogin; got != 1 {
		t.Fatalf("login attempts = %v", got)
	}

	beforeWrite := testutil.ToFloat64(ProjectWrites.WithLabelValues("create"))
	RecordProjectWrite("create")
	if got := testutil.ToFloat64(ProjectWrites.WithLabelValues("create")) - beforeWrite; got != 1 {
		t.Fatalf("project writes = %v", got)
	}
}
