package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var jobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_scan_jobs_enqueued_total",
	Help: "The total number of scan jobs enqueued",
}, []string{"dispatcher_name", "kind"})

var jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_scan_jobs_processed_total",
	Help: "The total number of scan jobs processed",
}, []string{"dispatcher_name", "kind"})
