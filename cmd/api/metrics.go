package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/config"
)

// newPrometheusRegistry builds the registry behind /metrics: runtime
// collectors, build info and registry pool gauges.
func newPrometheusRegistry(cfg *config.Config, pool *pgxpool.Pool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "ars",
		Name:        "build_info",
		Help:        "Build information of the running scorer",
		ConstLabels: prometheus.Labels{"version": cfg.Version, "environment": cfg.Environment},
	})
	buildInfo.Set(1)
	reg.MustRegister(buildInfo)

	if pool != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "ars",
				Subsystem: "registry_db",
				Name:      "connections_total",
				Help:      "Open connections in the registry pool",
			}, func() float64 { return float64(pool.Stat().TotalConns()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "ars",
				Subsystem: "registry_db",
				Name:      "connections_acquired",
				Help:      "Connections currently checked out of the registry pool",
			}, func() float64 { return float64(pool.Stat().AcquiredConns()) }),
		)
	}

	return reg
}
