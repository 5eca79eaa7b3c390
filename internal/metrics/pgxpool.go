package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the part of *pgxpool.Pool the gauges read.
type PoolStats interface {
	Stat() *pgxpool.Stat
}

// RegisterPgxPoolMetrics exposes pgx connection pool statistics as Prometheus
// gauges on reg.
func RegisterPgxPoolMetrics(reg prometheus.Registerer, pool PoolStats) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "mailprov_pgxpool_acquired_conns",
			Help: "Number of currently acquired connections in the billing database pool",
		}, func() float64 {
			return float64(pool.Stat().AcquiredConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "mailprov_pgxpool_max_conns",
			Help: "Maximum number of connections in the billing database pool",
		}, func() float64 {
			return float64(pool.Stat().MaxConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "mailprov_pgxpool_total_conns",
			Help: "Total number of connections in the billing database pool",
		}, func() float64 {
			return float64(pool.Stat().TotalConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "mailprov_pgxpool_idle_conns",
			Help: "Number of idle connections in the billing database pool",
		}, func() float64 {
			return float64(pool.Stat().IdleConns())
		}),
	)
}
