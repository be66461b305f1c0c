/*

Prometheus instrumentation for the emission engine. Metrics doubles as an
event sink: operation counters advance as events arrive, while gauges are
synced from engine snapshots by whoever holds one (the epoch runner and the
web status handler).

*/

package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solstice-fi/emissary/internal/types"
	"github.com/solstice-fi/emissary/internal/utils"
)

const namespace = "emissary"

type Metrics struct {
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	rewardsPaid prometheus.Counter
	staked      *prometheus.CounterVec
	withdrawn   *prometheus.CounterVec
	epochs      prometheus.Counter
	requests    *prometheus.CounterVec

	poolRate    *prometheus.GaugeVec
	poolStaked  *prometheus.GaugeVec
	poolWeight  *prometheus.GaugeVec
	totalRate   prometheus.Gauge
	totalWeight prometheus.Gauge
	escrow      prometheus.Gauge
	positions   prometheus.Gauge
	voters      prometheus.Gauge
}

// New builds all collectors on a private registry so repeated construction
// (tests, restarts) never double-registers.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_events_total",
			Help:      "Committed engine events by kind.",
		}, []string{"kind"}),
		rewardsPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_paid_total",
			Help:      "Reward units paid out to participants.",
		}),
		staked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staked_total",
			Help:      "Units deposited, by pool.",
		}, []string{"pool_id"}),
		withdrawn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawn_total",
			Help:      "Units withdrawn, by pool.",
		}, []string{"pool_id"}),
		epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "epochs_total",
			Help:      "Completed rebalance epochs.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status.",
		}, []string{"method", "route", "status"}),

		poolRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_emission_rate",
			Help:      "Reward units per second currently assigned to the pool.",
		}, []string{"pool_id"}),
		poolStaked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_staked",
			Help:      "Live staked balance held by the pool escrow.",
		}, []string{"pool_id"}),
		poolWeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_weight",
			Help:      "Reserved plus voted weight of the pool.",
		}, []string{"pool_id"}),
		totalRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_emission_rate",
			Help:      "System-wide reward units per second.",
		}),
		totalWeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_weight",
			Help:      "Sum of every pool's weight.",
		}),
		escrow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reward_escrow",
			Help:      "Undistributed reward balance held in escrow.",
		}),
		positions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "positions",
			Help:      "Live positions across all pools.",
		}),
		voters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voters",
			Help:      "Participants with a live vote.",
		}),
	}

	m.registry.MustRegister(
		m.operations, m.rewardsPaid, m.staked, m.withdrawn, m.epochs, m.requests,
		m.poolRate, m.poolStaked, m.poolWeight,
		m.totalRate, m.totalWeight, m.escrow, m.positions, m.voters,
	)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Record implements the engine's event sink.
func (m *Metrics) Record(event types.Event) error {
	m.operations.WithLabelValues(string(event.Kind)).Inc()

	amount := utils.IntToFloat64OrZero(event.Amount)
	pool := strconv.FormatUint(uint64(event.PoolID), 10)

	switch event.Kind {
	case types.EventRewardPaid:
		m.rewardsPaid.Add(amount)
	case types.EventDeposit:
		m.staked.WithLabelValues(pool).Add(amount)
	case types.EventWithdraw:
		m.withdrawn.WithLabelValues(pool).Add(amount)
	}
	return nil
}

// CountEpoch marks one completed rebalance epoch.
func (m *Metrics) CountEpoch() {
	m.epochs.Inc()
}

// ObserveSnapshot syncs every gauge from an engine snapshot.
func (m *Metrics) ObserveSnapshot(snap types.EngineSnapshot) {
	m.totalRate.Set(utils.IntToFloat64OrZero(snap.TotalEmissionRate))
	m.totalWeight.Set(utils.IntToFloat64OrZero(snap.TotalWeight))
	m.escrow.Set(utils.IntToFloat64OrZero(snap.RewardEscrow))
	m.positions.Set(float64(snap.PositionCount))
	m.voters.Set(float64(snap.VoterCount))

	for _, pool := range snap.Pools {
		id := strconv.FormatUint(uint64(pool.ID), 10)
		m.poolRate.WithLabelValues(id).Set(utils.IntToFloat64OrZero(pool.EmissionRate))
		m.poolStaked.WithLabelValues(id).Set(utils.IntToFloat64OrZero(pool.TotalStaked))
		m.poolWeight.WithLabelValues(id).Set(utils.IntToFloat64OrZero(pool.Weight()))
	}
}

// CountRequest feeds the HTTP middleware counter.
func (m *Metrics) CountRequest(method, route string, status int) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
