// Package metricspush implements the optional Prometheus Pushgateway
// reporter. Since each invocation of this program is a short-lived
// process rather than a long-running server, there is no /metrics
// endpoint to scrape (unlike internal/metrics, which is built around
// promhttp.Handler for a long-running daemon) — every run pushes its
// own result to a Pushgateway instead, using the same
// prometheus/client_golang collectors provisr registers.
package metricspush

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/cronburgundy/cronburgundy/internal/runner"
)

// Reporter pushes each invocation's outcome to a Pushgateway URL. A nil
// *Reporter is never constructed; callers that don't configure a URL
// simply don't wire a Reporter into the Runner (runner.MetricsReporter
// is optional).
type Reporter struct {
	url string
	job string

	duration *prometheus.HistogramVec
	runs *prometheus.CounterVec
}

// New constructs a Reporter targeting url (e.g. "http://localhost:9091"),
// grouped under Pushgateway job name job.
func New(url, job string) *Reporter {
	return &Reporter{
		url: url,
		job: job,
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cronb",
			Name: "job_duration_seconds",
			Help: "Duration of a job invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"qid", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cronb",
			Name: "job_runs_total",
			Help: "Count of job invocations by outcome.",
		}, []string{"qid", "outcome"}),
	}
}

// Report implements runner.MetricsReporter. Push failures are swallowed:
// a Pushgateway outage must never fail a job run.
func (r *Reporter) Report(qid string, outcome runner.Outcome, duration time.Duration) {
	r.runs.WithLabelValues(qid, string(outcome)).Inc()
	r.duration.WithLabelValues(qid, string(outcome)).Observe(duration.Seconds())

	_ = push.New(r.url, r.job).
		Collector(r.runs).
		Collector(r.duration).
		Grouping("qid", qid).
		Push()
}
