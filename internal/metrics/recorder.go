package metrics

import (
	"context"

	"ai-grocery-checklist/internal/llm"

	"go.uber.org/zap"
)

// Recorder fans generation and save-slot events out to Prometheus and, when
// a Store is configured, to the SQLite usage table.
type Recorder struct {
	store      *Store
	collectors *Collectors
	logger     *zap.Logger
}

// NewRecorder creates a Recorder. store and collectors may each be nil.
func NewRecorder(store *Store, collectors *Collectors, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, collectors: collectors, logger: logger}
}

// ObserveGeneration records one generation call. Failures to persist the
// metric are logged and never reach the caller.
func (r *Recorder) ObserveGeneration(ctx context.Context, meta llm.AgentMeta, err error) {
	if r == nil {
		return
	}
	if r.collectors != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		r.collectors.Generations.WithLabelValues(outcome).Inc()
		r.collectors.LatencySecond.Observe(meta.Latency.Seconds())
		if meta.Usage.PromptTokens > 0 || meta.Usage.CompletionTokens > 0 {
			r.collectors.Tokens.WithLabelValues(meta.Usage.Model, "prompt").Add(float64(meta.Usage.PromptTokens))
			r.collectors.Tokens.WithLabelValues(meta.Usage.Model, "completion").Add(float64(meta.Usage.CompletionTokens))
		}
	}
	if r.store != nil {
		if storeErr := r.store.RecordMeta(ctx, meta, err == nil); storeErr != nil {
			r.logger.Warn("failed to record generation metric",
				zap.String("agent", meta.AgentName), zap.Error(storeErr))
		}
	}
}

// ObserveSlot counts a save-slot operation.
func (r *Recorder) ObserveSlot(op string, err error) {
	if r == nil || r.collectors == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.collectors.SlotOps.WithLabelValues(op, outcome).Inc()
}

// Store returns the usage store, if any.
func (r *Recorder) Store() *Store {
	if r == nil {
		return nil
	}
	return r.store
}
