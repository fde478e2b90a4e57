package datastore

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DBNameLabel identifies the database a pool metric belongs to.
	DBNameLabel = "db_name"
	// QueryNameLabel is the label for DB metrics, representing the query name (e.g., "Reserve", "GetLink").
	QueryNameLabel = "query_name"
	// StatusLabel is the label for DB metrics, representing the outcome.
	StatusLabel = "status"

	// StatusSuccess is the label for a successful operation.
	StatusSuccess = "success"
	// StatusError is the label for a failed operation.
	StatusError = "error"
	// StatusCollision is the label for a key collision during an insert.
	StatusCollision = "collision"
)

// Metrics contains the Prometheus collectors for application-specific
// database metrics. Pool stats are scraped on demand by poolStatsCollector.
type Metrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the database metrics collectors.
// It returns an error if any of the collectors fail to register.
func NewMetrics(pool *pgxpool.Pool, dbName string) (Metrics, error) {
	m := Metrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "The latency of database queries in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{QueryNameLabel}),

		QueryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_query_total",
			Help: "The total number of database queries.",
		}, []string{QueryNameLabel, StatusLabel}),
	}

	collectors := []prometheus.Collector{
		m.QueryDuration,
		m.QueryTotal,
		&poolStatsCollector{pool: pool, dbName: dbName},
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			return Metrics{}, err
		}
	}

	return m, nil
}

// poolStatsCollector exposes pgxpool.Stat gauges and counters. It implements
// prometheus.Collector so stats are read only when scraped.
type poolStatsCollector struct {
	pool   *pgxpool.Pool
	dbName string
}

type poolStat struct {
	desc  *prometheus.Desc
	typ   prometheus.ValueType
	value func(*pgxpool.Stat) float64
}

func (c *poolStatsCollector) stats() []poolStat {
	labels := prometheus.Labels{DBNameLabel: c.dbName}
	gauge := func(name, help string, value func(*pgxpool.Stat) float64) poolStat {
		return poolStat{prometheus.NewDesc(name, help, nil, labels), prometheus.GaugeValue, value}
	}
	counter := func(name, help string, value func(*pgxpool.Stat) float64) poolStat {
		return poolStat{prometheus.NewDesc(name, help, nil, labels), prometheus.CounterValue, value}
	}

	return []poolStat{
		gauge("db_pool_max_conns", "Maximum number of connections in the pool.",
			func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
		gauge("db_pool_total_conns", "Total number of connections in the pool.",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("db_pool_acquired_conns", "Number of currently acquired connections in the pool.",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge("db_pool_idle_conns", "Number of currently idle connections in the pool.",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		counter("db_pool_acquire_count_total", "Cumulative count of successful connection acquisitions.",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
		counter("db_pool_acquire_duration_seconds_total", "Total time blocked waiting for a new connection, in seconds.",
			func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
	}
}

func (c *poolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range c.stats() {
		ch <- s.desc
	}
}

func (c *poolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	for _, s := range c.stats() {
		ch <- prometheus.MustNewConstMetric(s.desc, s.typ, s.value(stat))
	}
}
