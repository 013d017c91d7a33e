package kvstore

import (
	"context"

	"github.com/2beens/fittrack/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

var _ Store = (*InstrumentedStore)(nil)

// InstrumentedStore counts store operations by op and status.
type InstrumentedStore struct {
	next           Store
	metricsManager *metrics.Manager
}

func NewInstrumentedStore(next Store, metricsManager *metrics.Manager) *InstrumentedStore {
	return &InstrumentedStore{
		next:           next,
		metricsManager: metricsManager,
	}
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, ok, err := s.next.Get(ctx, key)
	status := "ok"
	if err != nil {
		status = "error"
	} else if !ok {
		status = "miss"
	}
	s.count("get", status)
	return val, ok, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key, value string) error {
	err := s.next.Set(ctx, key, value)
	s.count("set", statusFromErr(err))
	return err
}

func (s *InstrumentedStore) Remove(ctx context.Context, key string) error {
	err := s.next.Remove(ctx, key)
	s.count("remove", statusFromErr(err))
	return err
}

func (s *InstrumentedStore) count(op, status string) {
	s.metricsManager.CounterStoreOps.With(prometheus.Labels{
		"op":     op,
		"status": status,
	}).Inc()
}

func statusFromErr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
