package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/startup-finder/internal/model"
)

// Orchestrator owns the set of registered collectors, fans collection
// out across them, and aggregates the results. It does not deduplicate;
// callers hand the aggregate to the merge engine as an explicit step so
// collection and reconciliation stay independently testable.
type Orchestrator struct {
	mu            sync.Mutex
	names         []string
	collectors    map[string]Collector
	maxConcurrent int
	adapterTime   time.Duration
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxConcurrent bounds how many collectors run at once.
func WithMaxConcurrent(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithAdapterTimeout caps each collector's run.
func WithAdapterTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.adapterTime = d
		}
	}
}

// NewOrchestrator creates an empty orchestrator.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		collectors:    make(map[string]Collector),
		maxConcurrent: 4,
		adapterTime:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register adds a collector under a unique name. Re-registering a name
// replaces the previous collector.
func (o *Orchestrator) Register(name string, c Collector) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.collectors[name]; !exists {
		o.names = append(o.names, name)
	}
	o.collectors[name] = c
	zap.L().Info("orchestrator: registered collector", zap.String("name", name))
}

// CollectAll runs every registered collector and returns the combined,
// still-duplicated record list. Collectors run in parallel; one
// collector's failure (error or panic) is logged and skipped without
// discarding the others' results. A cancelled context returns whatever
// completed before cancellation.
func (o *Orchestrator) CollectAll(ctx context.Context, filter model.Filter) []model.Startup {
	o.mu.Lock()
	names := append([]string(nil), o.names...)
	o.mu.Unlock()

	var (
		mu  sync.Mutex
		all []model.Startup
	)

	g := new(errgroup.Group)
	g.SetLimit(o.maxConcurrent)

	for _, name := range names {
		g.Go(func() error {
			startups := o.runCollector(ctx, name, filter)
			if len(startups) == 0 {
				return nil
			}
			mu.Lock()
			all = append(all, startups...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("orchestrator: collection complete",
		zap.Int("collectors", len(names)),
		zap.Int("startups", len(all)),
	)
	return all
}

// CollectOne runs a single registered collector by name.
func (o *Orchestrator) CollectOne(ctx context.Context, name string, filter model.Filter) ([]model.Startup, error) {
	o.mu.Lock()
	_, exists := o.collectors[name]
	o.mu.Unlock()
	if !exists {
		return nil, eris.Errorf("orchestrator: no collector registered as %q", name)
	}
	return o.runCollector(ctx, name, filter), nil
}

// runCollector executes one collector with a per-adapter timeout and a
// panic guard.
func (o *Orchestrator) runCollector(ctx context.Context, name string, filter model.Filter) (startups []model.Startup) {
	o.mu.Lock()
	c := o.collectors[name]
	o.mu.Unlock()
	if c == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("orchestrator: collector panicked, skipping",
				zap.String("name", name),
				zap.Any("panic", r),
			)
			startups = nil
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, o.adapterTime)
	defer cancel()

	zap.L().Info("orchestrator: collecting", zap.String("name", name))
	result, err := c.Collect(cctx, filter)
	if err != nil {
		zap.L().Error("orchestrator: collector failed, skipping",
			zap.String("name", name),
			zap.Error(err),
		)
		return nil
	}
	return result
}
