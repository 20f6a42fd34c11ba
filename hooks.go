package atlas

import (
	"sync"

	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/insight"
)

// Hook function types for query events
type (
	// VerdictHook is called after a comparison produced a verdict. Each hook
	// receives its own copy; changes do not reach the caller or the cache.
	VerdictHook func(v *compare.Verdict)

	// InsightHook is called after an insight was generated
	InsightHook func(ins insight.Insight)
)

// hooks manages callbacks for query results
type hooks struct {
	mu        sync.RWMutex
	onVerdict []VerdictHook
	onInsight []InsightHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnVerdict registers a callback for computed verdicts
func (h *hooks) OnVerdict(fn VerdictHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onVerdict = append(h.onVerdict, fn)
}

// OnInsight registers a callback for generated insights
func (h *hooks) OnInsight(fn InsightHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onInsight = append(h.onInsight, fn)
}

func (h *hooks) triggerVerdict(v *compare.Verdict) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onVerdict {
		hook(v.Clone())
	}
}

func (h *hooks) triggerInsight(ins insight.Insight) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onInsight {
		hook(ins)
	}
}
