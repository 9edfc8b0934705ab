package connectivity

import (
	"iter"
	"maps"
	"slices"
)

// ServiceInfo is a point-in-time view of one service.
type ServiceInfo struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
	Endpoint string `json:"endpoint,omitempty"`
	HasLocal bool   `json:"has_local"`
}

// ListServices yields every known service, routed or local-only, in name
// order. The router lock is held only while the snapshot is taken.
func (r *Router) ListServices() iter.Seq[ServiceInfo] {
	r.mu.RLock()
	infos := make(map[string]ServiceInfo, len(r.routeSnap)+len(r.localHandlers))
	for name := range r.localHandlers {
		infos[name] = ServiceInfo{Name: name, Strategy: "local", HasLocal: true}
	}
	for name, rt := range r.routeSnap {
		_, hasLocal := r.localHandlers[name]
		infos[name] = ServiceInfo{Name: name, Strategy: rt.Strategy, Endpoint: rt.Endpoint, HasLocal: hasLocal}
	}
	r.mu.RUnlock()

	names := slices.Sorted(maps.Keys(infos))
	return func(yield func(ServiceInfo) bool) {
		for _, name := range names {
			if !yield(infos[name]) {
				return
			}
		}
	}
}

// Inspect describes one service. ok is false when the service has neither
// a route nor a local handler.
func (r *Router) Inspect(service string) (info ServiceInfo, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, hasRoute := r.routeSnap[service]
	_, hasLocal := r.localHandlers[service]
	switch {
	case hasRoute:
		return ServiceInfo{Name: service, Strategy: rt.Strategy, Endpoint: rt.Endpoint, HasLocal: hasLocal}, true
	case hasLocal:
		return ServiceInfo{Name: service, Strategy: "local", HasLocal: true}, true
	}
	return ServiceInfo{}, false
}
