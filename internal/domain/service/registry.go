package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/capgate/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
	"github.com/GriffinCanCode/capgate/internal/shared/utils"
)

// DefaultTimeout bounds a single handler execution
const DefaultTimeout = 30 * time.Second

var (
	ErrAlreadyRegistered = errors.New("service already registered")
	ErrInvalidDescriptor = errors.New("invalid service descriptor")
)

// Registry owns the registered services and their handlers
type Registry struct {
	mu          sync.RWMutex
	order       []string
	descriptors map[string]*types.ServiceDescriptor
	handlers    map[string]Handler
	templates   map[string]Instruction
	costs       CostTable

	timeout time.Duration
	logger  *zap.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	templates := make(map[string]Instruction, len(defaultTemplates))
	for name, tmpl := range defaultTemplates {
		templates[name] = tmpl
	}

	return &Registry{
		descriptors: make(map[string]*types.ServiceDescriptor),
		handlers:    make(map[string]Handler),
		templates:   templates,
		costs:       DefaultCosts(),
		timeout:     DefaultTimeout,
		logger:      logger,
	}
}

// WithMetrics records dispatches and registry gauges
func (r *Registry) WithMetrics(m *monitoring.Metrics) *Registry {
	r.metrics = m
	r.refreshGauges()
	return r
}

// WithTracer opens a span per dispatch
func (r *Registry) WithTracer(t *tracing.Tracer) *Registry {
	r.tracer = t
	return r
}

// WithTimeout sets the per-call handler timeout; non-positive keeps the default
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// WithCosts replaces the static cost table
func (r *Registry) WithCosts(costs CostTable) *Registry {
	r.costs = costs
	return r
}

// Register adds a service. A name can only be registered once.
// Local descriptors never keep a handler.
func (r *Registry) Register(desc types.ServiceDescriptor, handler Handler) error {
	if err := utils.ValidateServiceName(desc.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if !desc.Location.Valid() {
		return fmt.Errorf("%w: unknown location %q for %s", ErrInvalidDescriptor, desc.Location, desc.Name)
	}
	if desc.Status == "" {
		desc.Status = types.StatusActive
	}
	if !desc.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q for %s", ErrInvalidDescriptor, desc.Status, desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, desc.Name)
	}

	stored := desc.Clone()
	r.descriptors[desc.Name] = &stored
	r.order = append(r.order, desc.Name)

	if desc.Location == types.LocationServer && handler != nil {
		r.handlers[desc.Name] = handler
	}

	r.logger.Info("Service registered",
		zap.String("service", desc.Name),
		zap.String("location", string(desc.Location)),
		zap.String("status", string(stored.Status)),
		zap.Bool("handler", r.handlers[desc.Name] != nil),
	)
	r.refreshGaugesLocked()
	return nil
}

// RegisterTemplate installs the instruction template for a local service
func (r *Registry) RegisterTemplate(name string, tmpl Instruction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = tmpl
}

// Get returns a copy of the named descriptor
func (r *Registry) Get(name string) (types.ServiceDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.descriptors[name]
	if !ok {
		return types.ServiceDescriptor{}, false
	}
	return desc.Clone(), true
}

// Handler returns the handler registered for a server service
func (r *Registry) Handler(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	return h, ok
}

// List returns every descriptor in registration order
func (r *Registry) List() []types.ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ServiceDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.descriptors[name].Clone())
	}
	return out
}

// ListByLocation returns the descriptors at one location
func (r *Registry) ListByLocation(loc types.Location) []types.ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.ServiceDescriptor
	for _, name := range r.order {
		if desc := r.descriptors[name]; desc.Location == loc {
			out = append(out, desc.Clone())
		}
	}
	return out
}

// IsActive reports whether the named service exists and is active
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.descriptors[name]
	return ok && desc.Status == types.StatusActive
}

// UpdateStatus changes a service's status. errorMessage is kept only for
// the error status.
func (r *Registry) UpdateStatus(name string, status types.Status, errorMessage string) error {
	if !status.Valid() {
		return types.NewError(types.CodeInvalidParams,
			fmt.Sprintf("unknown status %q", status),
			map[string]any{"status": status})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.descriptors[name]
	if !ok {
		return serviceNotFound(name)
	}

	prev := desc.Status
	desc.Status = status
	desc.ErrorMessage = ""
	if status == types.StatusError {
		desc.ErrorMessage = errorMessage
	}

	if prev != status {
		r.logger.Info("Service status changed",
			zap.String("service", name),
			zap.String("from", string(prev)),
			zap.String("to", string(status)),
			zap.String("error", errorMessage),
		)
	}
	r.refreshGaugesLocked()
	return nil
}

// Shutdown runs every handler's shutdown hook and clears the registry.
// A failing hook is logged and does not stop the others.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	handlers := make(map[string]Handler, len(r.handlers))
	for name, h := range r.handlers {
		handlers[name] = h
	}
	r.descriptors = make(map[string]*types.ServiceDescriptor)
	r.handlers = make(map[string]Handler)
	r.order = nil
	r.refreshGaugesLocked()
	r.mu.Unlock()

	for name, h := range handlers {
		s, ok := h.(Shutdowner)
		if !ok {
			continue
		}
		if err := safeShutdown(ctx, s); err != nil {
			r.logger.Error("Service shutdown failed", zap.String("service", name), zap.Error(err))
			continue
		}
		r.logger.Info("Service shut down", zap.String("service", name))
	}
}

func safeShutdown(ctx context.Context, s Shutdowner) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("shutdown panic: %v", p)
		}
	}()
	return s.Shutdown(ctx)
}

func (r *Registry) refreshGauges() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.refreshGaugesLocked()
}

func (r *Registry) refreshGaugesLocked() {
	if r.metrics == nil {
		return
	}
	counts := make(map[[2]string]int)
	for _, status := range []types.Status{types.StatusActive, types.StatusInactive, types.StatusError} {
		for _, loc := range []types.Location{types.LocationLocal, types.LocationServer} {
			counts[[2]string{string(status), string(loc)}] = 0
		}
	}
	for _, desc := range r.descriptors {
		counts[[2]string{string(desc.Status), string(desc.Location)}]++
	}
	for key, n := range counts {
		r.metrics.SetServiceCount(key[0], key[1], n)
	}
}

func serviceNotFound(name string) *types.Error {
	return types.NewError(types.CodeServiceNotFound,
		fmt.Sprintf("service %q is not registered", name),
		map[string]any{"service": name})
}
