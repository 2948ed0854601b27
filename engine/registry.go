package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/lixenwraith/beatframe/parameter"
)

// Registry holds both client shapes under shared priority ordering.
// Animation and visual systems share one name namespace; frame callbacks
// are keyed by an independent id counter
type Registry struct {
	mu          sync.RWMutex
	systems     []*systemEntry
	names       map[string]*systemEntry
	callbacks   []*callbackEntry
	callbackIDs map[int]*callbackEntry
	nextCBID    int
	seq         uint64
}

// NewRegistry creates an empty client registry
func NewRegistry() *Registry {
	return &Registry{
		names:       make(map[string]*systemEntry),
		callbackIDs: make(map[int]*callbackEntry),
	}
}

// AddSystem registers a structured animation client under a unique name.
// Returns false on a name conflict
func (r *Registry) AddSystem(name string, client AnimationClient, priority Priority, targetFPS int) bool {
	if client == nil || name == "" {
		return false
	}
	if targetFPS <= 0 {
		targetFPS = parameter.DefaultTargetFPS
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[name]; exists {
		return false
	}

	r.seq++
	entry := &systemEntry{
		name:          name,
		priority:      priority,
		seq:           r.seq,
		enabled:   true,
		targetFPS: targetFPS,
		// Whole-millisecond truncation: a 60 FPS client must not be
		// throttled by sub-millisecond jitter at a nominal 16.6ms cadence
		frameInterval: time.Duration(1000/targetFPS) * time.Millisecond,
		invoke:        client.Animate,
	}
	r.names[name] = entry
	r.systems = append(r.systems, entry)
	r.sortSystemsLocked()
	return true
}

// AddCallback registers a plain frame function and returns its id
func (r *Registry) AddCallback(fn FrameFunc, priority Priority, owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextCBID++
	r.seq++
	entry := &callbackEntry{
		id:       r.nextCBID,
		owner:    owner,
		priority: priority,
		seq:      r.seq,
		fn:       fn,
	}
	r.callbackIDs[entry.id] = entry
	r.callbacks = append(r.callbacks, entry)
	r.sortCallbacksLocked()
	return entry.id
}

// RemoveSystem unregisters a named client. Returns true only if it existed
func (r *Registry) RemoveSystem(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.names[name]
	if !ok {
		return false
	}
	delete(r.names, name)
	for i, e := range r.systems {
		if e == entry {
			r.systems = append(r.systems[:i], r.systems[i+1:]...)
			break
		}
	}
	return true
}

// RemoveCallback unregisters a frame callback by id
func (r *Registry) RemoveCallback(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.callbackIDs[id]
	if !ok {
		return false
	}
	delete(r.callbackIDs, id)
	for i, e := range r.callbacks {
		if e == entry {
			r.callbacks = append(r.callbacks[:i], r.callbacks[i+1:]...)
			break
		}
	}
	return true
}

// SetEnabled toggles a named client without discarding its metrics
func (r *Registry) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.names[name]
	if !ok {
		return false
	}
	entry.enabled = enabled
	return true
}

// Empty reports whether both sub-registries are empty
func (r *Registry) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.systems) == 0 && len(r.callbacks) == 0
}

// ActiveCount returns enabled systems plus callbacks
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.callbacks)
	for _, e := range r.systems {
		if e.enabled {
			n++
		}
	}
	return n
}

// Infos returns the external view of all registered systems in execution order
func (r *Registry) Infos() []SystemInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SystemInfo, 0, len(r.systems))
	for _, e := range r.systems {
		infos = append(infos, SystemInfo{
			Name:      e.name,
			Priority:  e.priority,
			Enabled:   e.enabled,
			TargetFPS: e.targetFPS,
			Metrics:   e.metrics,
		})
	}
	return infos
}

// snapshotSystems copies the ordered system slice so clients may
// unregister from within their own update
func (r *Registry) snapshotSystems() []*systemEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*systemEntry, len(r.systems))
	copy(out, r.systems)
	return out
}

// snapshotCallbacks copies the ordered callback slice
func (r *Registry) snapshotCallbacks() []*callbackEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*callbackEntry, len(r.callbacks))
	copy(out, r.callbacks)
	return out
}

// systemState reads the throttle-relevant fields under lock
func (r *Registry) systemState(e *systemEntry) (enabled bool, interval time.Duration, last time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.enabled, e.frameInterval, e.lastUpdate
}

// recordSystemRun updates metrics after one executed frame
func (r *Registry) recordSystemRun(e *systemEntry, dur time.Duration, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.lastUpdate = at
	e.metrics.record(dur)
}

// recordSystemSkip counts a throttled frame
func (r *Registry) recordSystemSkip(e *systemEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.metrics.SkippedFrames++
}

// recordCallbackRun updates metrics after one executed callback
func (r *Registry) recordCallbackRun(e *callbackEntry, dur time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.metrics.record(dur)
}

// CallbackMetrics returns a copy of one callback's metrics
func (r *Registry) CallbackMetrics(id int) (ClientMetrics, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.callbackIDs[id]; ok {
		return e.metrics, true
	}
	return ClientMetrics{}, false
}

// SystemMetrics returns a copy of one named system's metrics
func (r *Registry) SystemMetrics(name string) (ClientMetrics, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.names[name]; ok {
		return e.metrics, true
	}
	return ClientMetrics{}, false
}

// Stable order: priority tier first, registration sequence within a tier
func (r *Registry) sortSystemsLocked() {
	sort.SliceStable(r.systems, func(i, j int) bool {
		if r.systems[i].priority != r.systems[j].priority {
			return r.systems[i].priority < r.systems[j].priority
		}
		return r.systems[i].seq < r.systems[j].seq
	})
}

func (r *Registry) sortCallbacksLocked() {
	sort.SliceStable(r.callbacks, func(i, j int) bool {
		if r.callbacks[i].priority != r.callbacks[j].priority {
			return r.callbacks[i].priority < r.callbacks[j].priority
		}
		return r.callbacks[i].seq < r.callbacks[j].seq
	})
}
