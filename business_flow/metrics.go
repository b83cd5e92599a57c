package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestListingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "priceshield",
		Subsystem: "ingest",
		Name:      "listings_total",
		Help:      "Raw listings processed by the ingest pipeline, by outcome.",
	}, []string{"retailer", "outcome"})

	observationsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "priceshield",
		Subsystem: "ingest",
		Name:      "price_observations_total",
		Help:      "Price observations appended to the ledger.",
	}, []string{"retailer"})

	alertsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "priceshield",
		Subsystem: "alerts",
		Name:      "created_total",
		Help:      "Alerts created, by retailer and direction.",
	}, []string{"retailer", "direction"})

	alertsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "priceshield",
		Subsystem: "alerts",
		Name:      "rejected_total",
		Help:      "Price changes that did not produce an alert, by reason.",
	}, []string{"retailer", "reason"})
)
