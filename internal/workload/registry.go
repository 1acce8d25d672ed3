package workload

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
	"github.com/GriffinCanCode/threadcomm/internal/comm/payload"
)

// ErrUnknownWorkload is returned when a name is not registered
var ErrUnknownWorkload = errors.New("workload not found")

// Workload configures a coordinator with the entry points of one demo
type Workload interface {
	Name() string
	Description() string
	Configure(coord *comm.Coordinator, params *Params) error
}

// Params is shared by every rank of a workload run
type Params struct {
	Rounds   int
	Document payload.Document
	Results  *Results
}

// NewParams creates params with an empty result set
func NewParams(rounds int) *Params {
	if rounds < 1 {
		rounds = 1
	}
	return &Params{Rounds: rounds, Results: NewResults()}
}

// Info describes a registered workload
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry holds workloads by name
type Registry struct {
	workloads sync.Map
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry creates a registry with every built-in workload
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, w := range []Workload{Ring{}, Reduce{}, PingPong{}, Broadcast{}} {
		_ = r.Register(w)
	}
	return r
}

// Register adds a workload
func (r *Registry) Register(w Workload) error {
	if w.Name() == "" {
		return fmt.Errorf("workload name cannot be empty")
	}
	if _, loaded := r.workloads.LoadOrStore(w.Name(), w); loaded {
		return fmt.Errorf("workload %q already registered", w.Name())
	}
	return nil
}

// Get retrieves a workload by name
func (r *Registry) Get(name string) (Workload, bool) {
	val, ok := r.workloads.Load(name)
	if !ok {
		return nil, false
	}
	return val.(Workload), true
}

// List returns all registered workloads sorted by name
func (r *Registry) List() []Info {
	var infos []Info
	r.workloads.Range(func(_, value any) bool {
		w := value.(Workload)
		infos = append(infos, Info{Name: w.Name(), Description: w.Description()})
		return true
	})
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Configure looks up name and configures coord with it
func (r *Registry) Configure(name string, coord *comm.Coordinator, params *Params) error {
	w, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorkload, name)
	}
	return w.Configure(coord, params)
}

// Results collects named values produced by a run
type Results struct {
	mu     sync.RWMutex
	values map[string]float64
}

// NewResults creates an empty result set
func NewResults() *Results {
	return &Results{values: make(map[string]float64)}
}

// Set records a value
func (r *Results) Set(key string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

// Get returns a recorded value
func (r *Results) Get(key string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok
}

// Snapshot returns a copy of every recorded value
func (r *Results) Snapshot() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
