package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketpulse_agent_calls_total",
			Help: "Agent invocations by outcome",
		},
		[]string{"agent", "provider", "status"}, // status: completed|fallback|failed
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketpulse_agent_latency_seconds",
			Help:    "Agent model call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"agent"},
	)

	AgentTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketpulse_agent_tokens_total",
			Help: "Tokens reported by agent model calls",
		},
		[]string{"agent"},
	)

	EmbeddingChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketpulse_embedding_chunks_total",
			Help: "Embedding chunks by outcome",
		},
		[]string{"status"}, // status: inserted|failed
	)

	InsightCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketpulse_insight_calls_total",
			Help: "Insight aggregation calls by outcome",
		},
		[]string{"status"},
	)

	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketpulse_pipeline_runs_total",
			Help: "Finished research pipeline runs",
		},
		[]string{"status", "feedback_loop"},
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketpulse_step_duration_seconds",
			Help:    "Pipeline activity duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"step", "status"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			AgentCalls,
			AgentLatency,
			AgentTokens,
			EmbeddingChunks,
			InsightCalls,
			PipelineRuns,
			StepDuration,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordAgentCall(agent, provider, status string, latency time.Duration, tokens int64) {
	AgentCalls.WithLabelValues(agent, provider, status).Inc()
	AgentLatency.WithLabelValues(agent).Observe(latency.Seconds())
	if tokens > 0 {
		AgentTokens.WithLabelValues(agent).Add(float64(tokens))
	}
}

func RecordEmbeddingChunk(err error) {
	if err != nil {
		EmbeddingChunks.WithLabelValues("failed").Inc()
		return
	}
	EmbeddingChunks.WithLabelValues("inserted").Inc()
}

func RecordInsight(status string) {
	InsightCalls.WithLabelValues(status).Inc()
}

func RecordPipelineRun(status string, feedback bool) {
	fb := "false"
	if feedback {
		fb = "true"
	}
	PipelineRuns.WithLabelValues(status, fb).Inc()
}

func RecordStep(step string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StepDuration.WithLabelValues(step, status).Observe(time.Since(started).Seconds())
}
