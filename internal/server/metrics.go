package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neural_uploads_total",
		Help: "Number of document upload requests received.",
	})
	uploadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neural_upload_failures_total",
		Help: "Number of uploads that failed before acknowledgement.",
	})
	queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neural_queries_total",
		Help: "Number of document chat queries received.",
	})
	plansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neural_workflow_plans_total",
		Help: "Number of workflow planning requests received.",
	})
)
