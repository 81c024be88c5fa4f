package session

import "github.com/prometheus/client_golang/prometheus"

var (
	modelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "model_loads_total",
			Help:      "Model load attempts by result",
		},
		[]string{"result"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "generations_total",
			Help:      "Completed generation calls by outcome",
		},
		[]string{"outcome"},
	)

	generatedTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "generated_tokens_total",
			Help:      "Tokens delivered to callbacks",
		},
	)

	promptTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "prompt_tokens_total",
			Help:      "Prompt tokens ingested after truncation",
		},
	)

	truncationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "prompt_truncations_total",
			Help:      "Prompts truncated to fit the context window",
		},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(modelLoadsTotal, generationsTotal, generatedTokensTotal, promptTokensTotal, truncationsTotal, generationDuration)
}
