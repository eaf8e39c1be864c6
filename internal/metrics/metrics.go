package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DraftsOpened counts sale drafts opened.
	DraftsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_drafts_opened_total",
		Help: "Number of sale drafts opened.",
	})

	// SalesSubmitted counts sales successfully submitted upstream.
	SalesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_submitted_total",
		Help: "Number of sales accepted by the sales service.",
	})

	// UpstreamErrors counts failed calls per upstream service.
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_errors_total",
		Help: "Number of failed calls to upstream services.",
	}, []string{"service"})
)
