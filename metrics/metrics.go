package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snake_rl"

// Metrics exports training progress. It satisfies qdeepneuro.Observer.
type Metrics struct {
	registry *prometheus.Registry

	Games prometheus.Counter
	Score prometheus.Gauge
	Best  prometheus.Gauge
	Mean  prometheus.Gauge
	Loss  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Games: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_total",
			Help:      "Finished training games.",
		}),
		Score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_score",
			Help:      "Score of the last finished game.",
		}),
		Best: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_score",
			Help:      "Best score of the run.",
		}),
		Mean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_score",
			Help:      "Mean score over all games of the run.",
		}),
		Loss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "replay_loss",
			Help:      "Loss of the last long memory training step.",
		}),
	}

	m.registry.MustRegister(m.Games, m.Score, m.Best, m.Mean, m.Loss)
	return m
}

func (m *Metrics) ObserveGame(score, best int, mean float64) {
	m.Games.Inc()
	m.Score.Set(float64(score))
	m.Best.Set(float64(best))
	m.Mean.Set(mean)
}

func (m *Metrics) ObserveLoss(loss float64) {
	m.Loss.Set(loss)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
