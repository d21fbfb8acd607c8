package bootstrap

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/domain/service"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// Factory builds the handler for one server-side integration
type Factory struct {
	Descriptor types.ServiceDescriptor
	New        func(ctx context.Context) (service.Handler, error)
}

// Report summarises one bootstrap run
type Report struct {
	Registered []string          `json:"registered"`
	Failed     map[string]string `json:"failed"`
}

// Initializer registers local tools and server integrations
type Initializer struct {
	registry  *service.Registry
	logger    *zap.Logger
	tools     []LocalTool
	factories map[string]Factory
}

// NewInitializer creates an initializer with no tools or factories
func NewInitializer(registry *service.Registry, logger *zap.Logger) *Initializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Initializer{
		registry:  registry,
		logger:    logger,
		factories: make(map[string]Factory),
	}
}

// WithLocalTools adds local tools; a later tool replaces an earlier one of
// the same name.
func (i *Initializer) WithLocalTools(tools ...LocalTool) *Initializer {
	for _, tool := range tools {
		replaced := false
		for idx := range i.tools {
			if i.tools[idx].Name == tool.Name {
				i.tools[idx] = tool
				replaced = true
				break
			}
		}
		if !replaced {
			i.tools = append(i.tools, tool)
		}
	}
	return i
}

// Add installs a factory keyed by its descriptor name
func (i *Initializer) Add(f Factory) *Initializer {
	i.factories[f.Descriptor.Name] = f
	return i
}

// Run registers everything and reports what succeeded
func (i *Initializer) Run(ctx context.Context) Report {
	report := Report{Failed: make(map[string]string)}

	for _, tool := range i.tools {
		if err := i.registry.Register(tool.Descriptor(), nil); err != nil {
			i.logger.Warn("Failed to register local tool", zap.String("service", tool.Name), zap.Error(err))
			report.Failed[tool.Name] = err.Error()
			continue
		}
		if tmpl, ok := tool.Instruction(); ok {
			i.registry.RegisterTemplate(tool.Name, tmpl)
		}
		report.Registered = append(report.Registered, tool.Name)
	}

	names := make([]string, 0, len(i.factories))
	for name := range i.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := i.initService(ctx, i.factories[name]); err != nil {
			report.Failed[name] = err.Error()
			continue
		}
		report.Registered = append(report.Registered, name)
	}

	i.logger.Info("Bootstrap complete",
		zap.Int("registered", len(report.Registered)),
		zap.Int("failed", len(report.Failed)),
	)
	return report
}

func (i *Initializer) initService(ctx context.Context, f Factory) error {
	desc := f.Descriptor.Clone()
	desc.Location = types.LocationServer

	handler, err := build(ctx, f)
	if err != nil {
		i.logger.Warn("Service failed to initialize",
			zap.String("service", desc.Name),
			zap.Error(err),
		)
		desc.Status = types.StatusError
		desc.ErrorMessage = err.Error()
		if regErr := i.registry.Register(desc, nil); regErr != nil {
			i.logger.Error("Failed to register service", zap.String("service", desc.Name), zap.Error(regErr))
		}
		return err
	}

	desc.Status = types.StatusActive
	desc.ErrorMessage = ""
	desc.Capabilities = handler.Capabilities()
	if err := i.registry.Register(desc, handler); err != nil {
		i.logger.Error("Failed to register service", zap.String("service", desc.Name), zap.Error(err))
		if s, ok := handler.(service.Shutdowner); ok {
			_ = s.Shutdown(ctx)
		}
		return err
	}
	return nil
}

// build runs the factory, turning a panic into an error
func build(ctx context.Context, f Factory) (h service.Handler, err error) {
	defer func() {
		if p := recover(); p != nil {
			h, err = nil, fmt.Errorf("initialization panic: %v", p)
		}
	}()

	if f.New == nil {
		return nil, fmt.Errorf("no factory for %s", f.Descriptor.Name)
	}
	h, err = f.New(ctx)
	if err == nil && h == nil {
		err = fmt.Errorf("factory for %s returned no handler", f.Descriptor.Name)
	}
	return h, err
}
