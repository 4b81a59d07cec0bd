package demoapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trymylook_submissions_total",
		Help: "Demo submissions by kind and outcome.",
	}, []string{"kind", "outcome"})

	admissionDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trymylook_admission_denials_total",
		Help: "Requests denied before job submission, by gate.",
	}, []string{"gate"})
)
