package service

import (
	"context"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// Handler is implemented by every server-side integration
type Handler interface {
	// Capabilities lists the operations the handler serves, in display order
	Capabilities() []types.Capability
	// Execute runs one operation. It should honour ctx cancellation.
	Execute(ctx context.Context, params types.Params) (*types.Result, error)
}

// Validator is an optional Handler capability, run before Execute
type Validator interface {
	ValidateParams(params types.Params) error
}

// Shutdowner is an optional Handler capability, run by Registry.Shutdown
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// HealthChecker is an optional Handler capability used by the health monitor
type HealthChecker interface {
	Health(ctx context.Context) error
}
