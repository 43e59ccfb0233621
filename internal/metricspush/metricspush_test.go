package metricspush

import (
	"testing"
	"time"

	"github.com/cronburgundy/cronburgundy/internal/runner"
)

func TestReportSwallowsPushFailure(t *testing.T) {
	r := New("http://127.0.0.1:0", "cronb-test")
	// The Pushgateway at this address cannot exist; Report must not panic
	// or otherwise propagate the failure.
	r.Report("t", runner.Ran, 2*time.Second)
}
