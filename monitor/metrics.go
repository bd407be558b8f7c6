package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "vigil_event_duration_sec",
	Help: "Total duration of scan event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_events_processed",
	Help: "Number of scan events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_event_errors",
	Help: "Number of scan events which failed processing",
}, []string{"type"})

var actionNewFlagCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_new_action_flags",
	Help: "Number of new account flags persisted",
}, []string{"type", "val"})

var accountMetaFetches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_account_meta_fetches",
	Help: "Number of account metadata reads (API calls)",
})

var detectionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_detections_recorded",
	Help: "Number of detections recorded for operator review",
})

var coordinationReports = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_coordination_reports",
	Help: "Number of coordinated comment clusters recorded",
})
