package http

import (
	"context"
	"net/http"
	"time"

	"heartpredict/monitoring"
	"heartpredict/patient"
	"heartpredict/predictor"
)

const (
	metricPredictions = "predictions_total"
	metricFailures    = "prediction_failures_total"
	metricDuration    = "prediction_duration_seconds"
	metricModelLoaded = "model_loaded"
)

func newMetrics(halted bool) *monitoring.MetricsCollector {
	m := monitoring.NewMetricsCollector()
	m.Describe(metricPredictions, "Predictions served by outcome")
	m.Describe(metricFailures, "Requests that produced no prediction, by reason")
	m.Describe(metricDuration, "Time spent in the predictor")
	m.Describe(metricModelLoaded, "1 when a model artifact is loaded")
	loaded := 1.0
	if halted {
		loaded = 0
	}
	m.SetGauge(metricModelLoaded, loaded, nil)
	return m
}

// predict runs the predictor and records its outcome and latency.
func (a *App) predict(ctx context.Context, rec patient.Record) (predictor.Result, error) {
	start := time.Now()
	result, err := a.predictor.Predict(ctx, rec)
	a.metrics.Observe(metricDuration, time.Since(start).Seconds(), nil)
	if err != nil {
		a.countFailure("inference")
		return result, err
	}
	a.metrics.IncrCounter(metricPredictions, 1, map[string]string{"outcome": result.Label.String()})
	return result, nil
}

func (a *App) countFailure(reason string) {
	a.metrics.IncrCounter(metricFailures, 1, map[string]string{"reason": reason})
}

// Metrics exposes the collector for callers that want to export it elsewhere.
func (a *App) Metrics() *monitoring.MetricsCollector {
	return a.metrics
}

func (a *App) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(a.metrics.ExportPrometheus()))
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": a.metrics.Snapshot(),
		"system":  a.metrics.GetSystemStats(),
	})
}
