package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики ядра матчинга
// ============================================================
//
// Использование:
// - Grafana дашборды для мониторинга латентности trigger → settlement
// - Alertmanager: рост конфликтов версий = аномальная конкуренция
//   отмен с матчингом, рост retry - повод смотреть на нагрузку

// matchCycleLatency - полное время цикла trigger → settlement
var matchCycleLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "metalex",
		Subsystem: "matching",
		Name:      "cycle_latency_ms",
		Help:      "Latency of a full match-and-settle cycle in milliseconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500},
	},
	[]string{"instrument"},
)

// tradesSettled - количество исполненных сделок
var tradesSettled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "metalex",
		Subsystem: "matching",
		Name:      "trades_settled_total",
		Help:      "Total number of trades settled",
	},
	[]string{"instrument"},
)

// settlementConflicts - откаты settlement'а из-за конфликта версий
var settlementConflicts = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "metalex",
		Subsystem: "matching",
		Name:      "settlement_conflicts_total",
		Help:      "Total number of settlements aborted on optimistic version conflict",
	},
)

// triggerRetries - повторы цикла после конфликта версий
var triggerRetries = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "metalex",
		Subsystem: "matching",
		Name:      "trigger_retries_total",
		Help:      "Total number of match cycle retries after a settlement conflict",
	},
)

// triggersTotal - вызовы MatchTrigger по результату
// result: matched, no_match, noop, error
var triggersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "metalex",
		Subsystem: "matching",
		Name:      "triggers_total",
		Help:      "Total number of match trigger invocations by result",
	},
	[]string{"result"},
)

// ObserveMatchCycle записывает латентность полного цикла
func ObserveMatchCycle(instrumentID string, ms float64) {
	matchCycleLatency.WithLabelValues(instrumentID).Observe(ms)
}

// CountTrigger записывает результат вызова trigger'а
func CountTrigger(result string) {
	triggersTotal.WithLabelValues(result).Inc()
}

// CountTriggerRetry записывает повтор цикла
func CountTriggerRetry() {
	triggerRetries.Inc()
}
