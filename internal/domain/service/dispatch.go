package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

type outcome struct {
	result *types.Result
	err    error
}

// Execute resolves, validates, routes, times and enriches one request.
// Every returned error is a *types.Error.
func (r *Registry) Execute(ctx context.Context, params types.Params) (*types.Result, error) {
	start := time.Now()

	var span *tracing.Span
	if r.tracer != nil {
		span, ctx = r.tracer.StartSpan(ctx, "dispatch")
		span.SetTag("service", params.Service)
		span.SetTag("operation", params.Operation)
		defer func() {
			span.Finish()
			r.tracer.Submit(span)
		}()
	}

	result, err := r.dispatch(ctx, params, start)
	elapsed := time.Since(start)

	if err != nil {
		gwErr := types.Normalize(err)
		if span != nil {
			span.SetError(gwErr)
		}
		r.recordError(params, gwErr, elapsed)
		return nil, gwErr
	}

	if r.metrics != nil {
		r.metrics.RecordDispatch(params.Service, params.Operation, elapsed,
			result.Metadata.TokensUsed, result.Metadata.Cost)
	}
	r.logger.Debug("Dispatch completed",
		zap.String("service", params.Service),
		zap.String("operation", params.Operation),
		zap.Duration("duration", elapsed),
	)
	return result, nil
}

func (r *Registry) dispatch(ctx context.Context, params types.Params, start time.Time) (result *types.Result, err error) {
	// validation hooks and capability lists run on this goroutine
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = types.Internal(fmt.Errorf("handler panic: %v", p))
		}
	}()

	r.mu.RLock()
	desc, ok := r.descriptors[params.Service]
	var (
		snapshot types.ServiceDescriptor
		handler  Handler
	)
	if ok {
		snapshot = desc.Clone()
		handler = r.handlers[params.Service]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, serviceNotFound(params.Service)
	}
	if params.Operation == "" {
		return nil, types.NewError(types.CodeInvalidParams, "operation is required",
			map[string]any{"service": params.Service})
	}

	if snapshot.Status != types.StatusActive {
		details := map[string]any{
			"service": snapshot.Name,
			"status":  snapshot.Status,
		}
		if snapshot.ErrorMessage != "" {
			details["errorMessage"] = snapshot.ErrorMessage
		}
		return nil, types.NewError(types.CodeServiceUnavailable,
			fmt.Sprintf("service %q is %s", snapshot.Name, snapshot.Status), details)
	}

	if snapshot.Location == types.LocationLocal {
		result = types.Success(r.localExecution(params))
		stamp(result, params, start)
		return result, nil
	}

	if handler == nil {
		return nil, types.NewError(types.CodeServiceUnavailable,
			fmt.Sprintf("service %q has no handler", snapshot.Name),
			map[string]any{"service": snapshot.Name, "reason": "no handler registered"})
	}

	if v, ok := handler.(Validator); ok {
		if err := v.ValidateParams(params); err != nil {
			if _, isGateway := types.AsError(err); isGateway {
				return nil, err
			}
			return nil, types.NewError(types.CodeInvalidParams, err.Error(),
				map[string]any{"service": params.Service, "operation": params.Operation})
		}
	}

	caps := handler.Capabilities()
	if !hasCapability(caps, params.Operation) {
		return nil, types.NewError(types.CodeOperationNotSupported,
			fmt.Sprintf("service %q does not support operation %q", params.Service, params.Operation),
			map[string]any{
				"service":             params.Service,
				"operation":           params.Operation,
				"availableOperations": types.CapabilityNames(caps),
			})
	}

	out, err := r.run(ctx, handler, params)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = types.Success(nil)
	}
	// handlers may return shared results; only the copy is stamped
	copied := *out
	result = &copied
	if result.Status == "" {
		result.Status = types.ResultStatusSuccess
	}

	cost := r.costs.Lookup(params.Service)
	if result.Metadata.TokensUsed == 0 {
		result.Metadata.TokensUsed = cost.Tokens
	}
	if result.Metadata.Cost == 0 {
		result.Metadata.Cost = cost.Amount
	}
	stamp(result, params, start)
	return result, nil
}

// run executes the handler under the dispatch timeout. The handler keeps
// running in its goroutine after a timeout; its context is cancelled.
func (r *Registry) run(ctx context.Context, handler Handler, params types.Params) (*types.Result, error) {
	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: types.Internal(fmt.Errorf("handler panic: %v", p))}
			}
		}()
		res, err := handler.Execute(execCtx, params)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && execCtx.Err() != nil {
			if _, ok := types.AsError(out.err); !ok {
				return nil, r.interrupted(ctx, params)
			}
		}
		return out.result, out.err
	case <-execCtx.Done():
		return nil, r.interrupted(ctx, params)
	}
}

// interrupted reports a call cut short by the dispatch timeout or the caller
func (r *Registry) interrupted(ctx context.Context, params types.Params) *types.Error {
	reason := "timeout"
	if errors.Is(ctx.Err(), context.Canceled) {
		reason = "canceled"
	}
	return types.NewError(types.CodeServiceUnavailable,
		fmt.Sprintf("service %q did not complete %q: %s", params.Service, params.Operation, reason),
		map[string]any{
			"service":   params.Service,
			"operation": params.Operation,
			"reason":    reason,
			"timeout":   r.timeout.String(),
		})
}

func (r *Registry) recordError(params types.Params, err *types.Error, elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordDispatchError(params.Service, params.Operation, string(err.Code), elapsed)
	}

	fields := []zap.Field{
		zap.String("service", params.Service),
		zap.String("operation", params.Operation),
		zap.String("code", string(err.Code)),
		zap.String("error", err.Message),
		zap.Duration("duration", elapsed),
	}
	if err.Code == types.CodeInternal {
		r.logger.Error("Dispatch failed", append(fields, zap.String("stack", err.Stack))...)
		return
	}
	r.logger.Warn("Dispatch rejected", fields...)
}

func hasCapability(caps []types.Capability, operation string) bool {
	for _, c := range caps {
		if c.Name == operation {
			return true
		}
	}
	return false
}

// stamp sets the fields the dispatcher always owns
func stamp(result *types.Result, params types.Params, start time.Time) {
	result.Metadata.ExecutionTime = time.Since(start).Milliseconds()
	result.Metadata.Service = params.Service
	result.Metadata.Operation = params.Operation
	result.Metadata.Timestamp = time.Now().UTC()
}
