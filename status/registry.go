package status

import "sync/atomic"

// Registry is the central metrics facade for the engine core
// Components cache pointers during construction; hot loops write directly
// to the atomics without touching the maps again
type Registry struct {
	Ints   *MetricMap[atomic.Int64]
	Floats *MetricMap[AtomicFloat]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Ints:   NewMetricMap[atomic.Int64](),
		Floats: NewMetricMap[AtomicFloat](),
	}
}

// ExportInts returns a point-in-time copy of every integer metric, keyed by
// name. Used by the inspector feed; not for hot paths
func (r *Registry) ExportInts() map[string]int64 {
	out := make(map[string]int64, r.Ints.Count())
	r.Ints.Range(func(key string, ptr *atomic.Int64) {
		out[key] = ptr.Load()
	})
	return out
}

// ExportFloats returns a point-in-time copy of every float metric
func (r *Registry) ExportFloats() map[string]float64 {
	out := make(map[string]float64, r.Floats.Count())
	r.Floats.Range(func(key string, ptr *AtomicFloat) {
		out[key] = ptr.Load()
	})
	return out
}
