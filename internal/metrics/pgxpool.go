package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterQueuePoolMetrics exposes the queue database pool statistics as
// Prometheus gauges.
func RegisterQueuePoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) {
	stat := func(f func(*pgxpool.Stat) float64) func() float64 {
		return func() float64 { return f(pool.Stat()) }
	}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "searchvault_queue_db_acquired_conns",
			Help: "Number of currently acquired connections in the queue pool",
		}, stat(func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "searchvault_queue_db_max_conns",
			Help: "Maximum number of connections in the queue pool",
		}, stat(func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "searchvault_queue_db_idle_conns",
			Help: "Number of idle connections in the queue pool",
		}, stat(func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) })),
	)
}
