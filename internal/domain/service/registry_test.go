package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

type mockHandler struct {
	caps     []types.Capability
	result   *types.Result
	err      error
	validate error
	shutdown error
	block    bool
	panics   bool

	calls     atomic.Int32
	shutdowns atomic.Int32
	last      types.Params
	mu        sync.Mutex
}

func (m *mockHandler) Capabilities() []types.Capability {
	return m.caps
}

func (m *mockHandler) Execute(ctx context.Context, params types.Params) (*types.Result, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.last = params
	m.mu.Unlock()

	if m.panics {
		panic("boom")
	}
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return types.Success(map[string]any{"rows": 1}), nil
}

func (m *mockHandler) ValidateParams(types.Params) error {
	return m.validate
}

func (m *mockHandler) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	return m.shutdown
}

// plainHandler has no optional capabilities
type plainHandler struct{}

func (plainHandler) Capabilities() []types.Capability {
	return []types.Capability{types.Op("ping", "")}
}

func (plainHandler) Execute(context.Context, types.Params) (*types.Result, error) {
	return types.Success("pong"), nil
}

func serverDesc(name string, caps ...string) types.ServiceDescriptor {
	desc := types.ServiceDescriptor{
		Name:     name,
		Version:  "1.0.0",
		Location: types.LocationServer,
		Status:   types.StatusActive,
	}
	for _, c := range caps {
		desc.Capabilities = append(desc.Capabilities, types.Op(c, ""))
	}
	return desc
}

func localDesc(name string) types.ServiceDescriptor {
	return types.ServiceDescriptor{
		Name:     name,
		Version:  "1.0.0",
		Location: types.LocationLocal,
		Status:   types.StatusActive,
	}
}

// faultyHandler panics in its optional hooks instead of in Execute
type faultyHandler struct {
	panicIn string
}

func (f faultyHandler) Capabilities() []types.Capability {
	if f.panicIn == "capabilities" {
		panic("capability list bug")
	}
	return []types.Capability{types.Op("ping", "")}
}

func (f faultyHandler) Execute(context.Context, types.Params) (*types.Result, error) {
	return types.Success("pong"), nil
}

func (f faultyHandler) ValidateParams(types.Params) error {
	if f.panicIn == "validate" {
		panic("validator bug")
	}
	return nil
}

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop())
}

func TestRegister(t *testing.T) {
	r := newTestRegistry()
	h := &mockHandler{caps: []types.Capability{types.Op("query", "")}}

	require.NoError(t, r.Register(serverDesc("postgres", "query"), h))

	desc, ok := r.Get("postgres")
	require.True(t, ok)
	assert.Equal(t, types.LocationServer, desc.Location)

	got, ok := r.Handler("postgres")
	require.True(t, ok)
	assert.Same(t, h, got)
}

func TestRegisterDuplicateDoesNotMutate(t *testing.T) {
	r := newTestRegistry()
	first := serverDesc("postgres", "query")
	require.NoError(t, r.Register(first, &mockHandler{}))

	second := serverDesc("postgres", "other")
	second.Version = "2.0.0"
	err := r.Register(second, &mockHandler{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	desc, _ := r.Get("postgres")
	assert.Equal(t, "1.0.0", desc.Version)
	assert.Equal(t, []string{"query"}, types.CapabilityNames(desc.Capabilities))
	assert.Len(t, r.List(), 1)
}

func TestRegisterLocalIgnoresHandler(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(localDesc("git"), &mockHandler{}))

	_, ok := r.Handler("git")
	assert.False(t, ok)
}

func TestRegisterRejectsInvalidDescriptor(t *testing.T) {
	tests := []struct {
		name string
		desc types.ServiceDescriptor
	}{
		{"empty name", types.ServiceDescriptor{Location: types.LocationServer}},
		{"bad name", types.ServiceDescriptor{Name: "Bad Name", Location: types.LocationServer}},
		{"bad location", types.ServiceDescriptor{Name: "x", Location: "remote"}},
		{"bad status", types.ServiceDescriptor{Name: "x", Location: types.LocationLocal, Status: "broken"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry()
			err := r.Register(tt.desc, nil)
			assert.ErrorIs(t, err, ErrInvalidDescriptor)
			assert.Empty(t, r.List())
		})
	}
}

func TestRegisterDefaultsStatusToActive(t *testing.T) {
	r := newTestRegistry()
	desc := localDesc("docker")
	desc.Status = ""
	require.NoError(t, r.Register(desc, nil))
	assert.True(t, r.IsActive("docker"))
}

func TestListPreservesOrderAndFilters(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(localDesc("playwright"), nil))
	require.NoError(t, r.Register(serverDesc("postgres", "query"), &mockHandler{}))
	require.NoError(t, r.Register(localDesc("git"), nil))

	names := func(descs []types.ServiceDescriptor) []string {
		var out []string
		for _, d := range descs {
			out = append(out, d.Name)
		}
		return out
	}

	assert.Equal(t, []string{"playwright", "postgres", "git"}, names(r.List()))
	assert.Equal(t, []string{"playwright", "git"}, names(r.ListByLocation(types.LocationLocal)))
	assert.Equal(t, []string{"postgres"}, names(r.ListByLocation(types.LocationServer)))
}

func TestGetReturnsCopy(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(serverDesc("postgres", "query"), &mockHandler{}))

	desc, _ := r.Get("postgres")
	desc.Capabilities[0].Name = "mutated"
	desc.Status = types.StatusError

	again, _ := r.Get("postgres")
	assert.Equal(t, "query", again.Capabilities[0].Name)
	assert.Equal(t, types.StatusActive, again.Status)
}

func TestUpdateStatus(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(serverDesc("postgres", "query"), &mockHandler{}))

	require.NoError(t, r.UpdateStatus("postgres", types.StatusError, "connection refused"))
	desc, _ := r.Get("postgres")
	assert.Equal(t, types.StatusError, desc.Status)
	assert.Equal(t, "connection refused", desc.ErrorMessage)
	assert.False(t, r.IsActive("postgres"))

	require.NoError(t, r.UpdateStatus("postgres", types.StatusActive, "ignored"))
	desc, _ = r.Get("postgres")
	assert.Empty(t, desc.ErrorMessage)
	assert.True(t, r.IsActive("postgres"))

	err := r.UpdateStatus("missing", types.StatusActive, "")
	assert.True(t, types.IsCode(err, types.CodeServiceNotFound))

	err = r.UpdateStatus("postgres", "sleeping", "")
	assert.True(t, types.IsCode(err, types.CodeInvalidParams))
}

func TestExecuteServiceNotFound(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Execute(context.Background(), types.Params{Service: "nope", Operation: "query"})
	gwErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeServiceNotFound, gwErr.Code)
	assert.Equal(t, "nope", gwErr.Details["service"])
}

func TestExecuteInactiveService(t *testing.T) {
	r := newTestRegistry()
	h := &mockHandler{caps: []types.Capability{types.Op("query", "")}}
	require.NoError(t, r.Register(serverDesc("postgres", "query"), h))
	require.NoError(t, r.UpdateStatus("postgres", types.StatusError, "dial tcp: refused"))

	_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
	gwErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeServiceUnavailable, gwErr.Code)
	assert.Equal(t, types.StatusError, gwErr.Details["status"])
	assert.Equal(t, "dial tcp: refused", gwErr.Details["errorMessage"])
	assert.Zero(t, h.calls.Load())
}

func TestExecuteLocal(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(localDesc("playwright"), nil))

	res, err := r.Execute(context.Background(), types.Params{
		Service:   "playwright",
		Operation: "click",
		Args:      types.NewArgs("selector", "#btn", "timeout", 500),
	})
	require.NoError(t, err)

	data, ok := res.Data.(LocalExecution)
	require.True(t, ok)
	assert.Equal(t, types.ResultStatusSuccess, res.Status)
	assert.Equal(t, LocalExecutionType, data.Type)
	assert.Equal(t, "npx", data.Instructions.Command)
	assert.Equal(t, []any{"playwright", "click", "#btn", 500}, data.Instructions.Args)
	assert.Zero(t, res.Metadata.TokensUsed)
	assert.Zero(t, res.Metadata.Cost)
	assert.Equal(t, "playwright", res.Metadata.Service)
	assert.Equal(t, "click", res.Metadata.Operation)
}

func TestExecuteLocalUnknownTemplate(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(localDesc("ffmpeg"), nil))

	res, err := r.Execute(context.Background(), types.Params{
		Service:   "ffmpeg",
		Operation: "convert",
		Args:      types.NewArgs("in", "a.mov"),
	})
	require.NoError(t, err)

	data := res.Data.(LocalExecution)
	assert.Equal(t, "ffmpeg", data.Instructions.Command)
	assert.Equal(t, []any{"convert", "a.mov"}, data.Instructions.Args)
	assert.Contains(t, data.Instructions.Description, "Local execution required")
}

func TestExecuteLocalRegisteredTemplate(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(localDesc("kubectl"), nil))
	r.RegisterTemplate("kubectl", Instruction{Command: "kubectl", Args: []string{"--context", "dev"}})

	res, err := r.Execute(context.Background(), types.Params{Service: "kubectl", Operation: "get"})
	require.NoError(t, err)

	data := res.Data.(LocalExecution)
	assert.Equal(t, []any{"--context", "dev", "get"}, data.Instructions.Args)
}

func TestExecuteServer(t *testing.T) {
	r := newTestRegistry()
	h := &mockHandler{caps: []types.Capability{types.Op("query", "")}}
	require.NoError(t, r.Register(serverDesc("postgres", "query"), h))

	params := types.Params{
		Service:   "postgres",
		Operation: "query",
		Args:      types.NewArgs("sql", "select 1"),
	}
	res, err := r.Execute(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, types.ResultStatusSuccess, res.Status)
	assert.Equal(t, "postgres", res.Metadata.Service)
	assert.Equal(t, "query", res.Metadata.Operation)
	assert.GreaterOrEqual(t, res.Metadata.ExecutionTime, int64(0))
	assert.Equal(t, 100, res.Metadata.TokensUsed)
	assert.InDelta(t, 0.001, res.Metadata.Cost, 1e-9)
	assert.False(t, res.Metadata.Timestamp.IsZero())
	assert.Equal(t, int32(1), h.calls.Load())
	assert.Equal(t, "select 1", h.last.String("sql"))
}

func TestExecuteDispatcherOwnsStampedFields(t *testing.T) {
	r := newTestRegistry()
	h := &mockHandler{
		caps: []types.Capability{types.Op("query", "")},
		result: &types.Result{
			Status: types.ResultStatusSuccess,
			Metadata: types.Metadata{
				ExecutionTime: 99999,
				TokensUsed:    7,
				Cost:          0.5,
				Service:       "spoofed",
				Operation:     "spoofed",
			},
		},
	}
	require.NoError(t, r.Register(serverDesc("postgres", "query"), h))

	res, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
	require.NoError(t, err)

	assert.Equal(t, 7, res.Metadata.TokensUsed)
	assert.InDelta(t, 0.5, res.Metadata.Cost, 1e-9)
	assert.Equal(t, "postgres", res.Metadata.Service)
	assert.Equal(t, "query", res.Metadata.Operation)
	assert.Less(t, res.Metadata.ExecutionTime, int64(99999))
	assert.Equal(t, "spoofed", h.result.Metadata.Service, "handler result must not be modified")
}

func TestExecuteLeavesSharedResultUntouched(t *testing.T) {
	r := newTestRegistry()
	shared := types.Success(map[string]any{"cached": true})
	h := &mockHandler{caps: []types.Capability{types.Op("query", "")}, result: shared}
	require.NoError(t, r.Register(serverDesc("postgres", "query"), h))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
			assert.NoError(t, err)
			assert.Equal(t, 100, res.Metadata.TokensUsed)
			assert.NotSame(t, shared, res)
		}()
	}
	wg.Wait()

	assert.Zero(t, shared.Metadata.TokensUsed)
	assert.Empty(t, shared.Metadata.Service)
	assert.True(t, shared.Metadata.Timestamp.IsZero())
}

func TestExecuteUnlistedServiceHasZeroCost(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(serverDesc("custom", "ping"), plainHandler{}))

	res, err := r.Execute(context.Background(), types.Params{Service: "custom", Operation: "ping"})
	require.NoError(t, err)
	assert.Zero(t, res.Metadata.TokensUsed)
	assert.Zero(t, res.Metadata.Cost)
	assert.Equal(t, "pong", res.Data)
}

func TestExecuteOperationNotSupported(t *testing.T) {
	r := newTestRegistry()
	h := &mockHandler{caps: []types.Capability{types.Op("query", ""), types.Op("execute", "")}}
	require.NoError(t, r.Register(serverDesc("postgres"), h))

	_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "drop"})
	gwErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeOperationNotSupported, gwErr.Code)
	assert.Equal(t, []string{"query", "execute"}, gwErr.Details["availableOperations"])
	assert.Zero(t, h.calls.Load())
}

func TestExecuteValidationHook(t *testing.T) {
	t.Run("taxonomy error passes through", func(t *testing.T) {
		r := newTestRegistry()
		want := types.NewError(types.CodeInvalidParams, "sql is required", map[string]any{"missing": []string{"sql"}})
		h := &mockHandler{caps: []types.Capability{types.Op("query", "")}, validate: want}
		require.NoError(t, r.Register(serverDesc("postgres"), h))

		_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
		assert.Same(t, want, err)
		assert.Zero(t, h.calls.Load())
	})

	t.Run("plain error becomes invalid params", func(t *testing.T) {
		r := newTestRegistry()
		h := &mockHandler{caps: []types.Capability{types.Op("query", "")}, validate: errors.New("bad input")}
		require.NoError(t, r.Register(serverDesc("postgres"), h))

		_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
		gwErr, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, types.CodeInvalidParams, gwErr.Code)
		assert.Equal(t, "bad input", gwErr.Message)
	})
}

func TestExecuteHandlerErrors(t *testing.T) {
	t.Run("taxonomy error unchanged", func(t *testing.T) {
		r := newTestRegistry()
		want := types.NewError(types.CodeInvalidParams, "table missing", map[string]any{"table": "x"})
		h := &mockHandler{caps: []types.Capability{types.Op("query", "")}, err: want}
		require.NoError(t, r.Register(serverDesc("postgres"), h))

		_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
		assert.Same(t, want, err)
	})

	t.Run("foreign error wrapped", func(t *testing.T) {
		r := newTestRegistry()
		cause := errors.New("pq: connection reset")
		h := &mockHandler{caps: []types.Capability{types.Op("query", "")}, err: cause}
		require.NoError(t, r.Register(serverDesc("postgres"), h))

		_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
		gwErr, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, types.CodeInternal, gwErr.Code)
		assert.Equal(t, "pq: connection reset", gwErr.Message)
		assert.NotEmpty(t, gwErr.Stack)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("panic recovered", func(t *testing.T) {
		r := newTestRegistry()
		h := &mockHandler{caps: []types.Capability{types.Op("query", "")}, panics: true}
		require.NoError(t, r.Register(serverDesc("postgres"), h))

		_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
		gwErr, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, types.CodeInternal, gwErr.Code)
		assert.Contains(t, gwErr.Message, "boom")
	})
}

func TestExecuteTimeout(t *testing.T) {
	r := newTestRegistry().WithTimeout(20 * time.Millisecond)
	h := &mockHandler{caps: []types.Capability{types.Op("query", "")}, block: true}
	require.NoError(t, r.Register(serverDesc("postgres"), h))

	_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
	gwErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeServiceUnavailable, gwErr.Code)
	assert.Equal(t, "timeout", gwErr.Details["reason"])
}

func TestExecuteCanceled(t *testing.T) {
	r := newTestRegistry()
	h := &mockHandler{caps: []types.Capability{types.Op("query", "")}, block: true}
	require.NoError(t, r.Register(serverDesc("postgres"), h))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Execute(ctx, types.Params{Service: "postgres", Operation: "query"})
	gwErr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeServiceUnavailable, gwErr.Code)
	assert.Equal(t, "canceled", gwErr.Details["reason"])
}

func TestExecuteActiveServerWithoutHandler(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(serverDesc("cloud", "listInstances"), nil))

	_, err := r.Execute(context.Background(), types.Params{Service: "cloud", Operation: "listInstances"})
	assert.True(t, types.IsCode(err, types.CodeServiceUnavailable))
}

func TestExecuteRequiresOperation(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(localDesc("git"), nil))

	_, err := r.Execute(context.Background(), types.Params{Service: "git"})
	assert.True(t, types.IsCode(err, types.CodeInvalidParams))

	_, err = r.Execute(context.Background(), types.Params{Service: "nope"})
	assert.True(t, types.IsCode(err, types.CodeServiceNotFound), "got %v", err)
}

func TestExecuteRecoversHookPanics(t *testing.T) {
	for _, where := range []string{"validate", "capabilities"} {
		t.Run(where, func(t *testing.T) {
			m := monitoring.NewMetrics()
			r := newTestRegistry().WithMetrics(m)
			require.NoError(t, r.Register(serverDesc("x", "ping"), faultyHandler{panicIn: where}))

			var err error
			require.NotPanics(t, func() {
				_, err = r.Execute(context.Background(), types.Params{Service: "x", Operation: "ping"})
			})
			gwErr, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, types.CodeInternal, gwErr.Code)
			assert.Contains(t, gwErr.Message, "bug")
			assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchErrors.WithLabelValues("x", "ping", "INTERNAL_ERROR")))
		})
	}
}

func TestExecuteRecordsMetrics(t *testing.T) {
	m := monitoring.NewMetrics()
	r := newTestRegistry().WithMetrics(m)
	require.NoError(t, r.Register(serverDesc("postgres"), &mockHandler{caps: []types.Capability{types.Op("query", "")}}))

	_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "drop"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchTotal.WithLabelValues("postgres", "query", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchErrors.WithLabelValues("postgres", "drop", "OPERATION_NOT_SUPPORTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ServicesByStatus.WithLabelValues("active", "server")))
}

func TestStatsConsistent(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(localDesc("playwright"), nil))
	require.NoError(t, r.Register(localDesc("git"), nil))
	require.NoError(t, r.Register(serverDesc("postgres", "query", "execute"), &mockHandler{}))
	require.NoError(t, r.Register(serverDesc("cloud", "listInstances"), &mockHandler{}))
	require.NoError(t, r.UpdateStatus("cloud", types.StatusError, "no token"))
	require.NoError(t, r.UpdateStatus("git", types.StatusInactive, ""))

	stats := r.Stats()
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, 1, stats.Error)
	assert.Equal(t, 2, stats.ServerSide)
	assert.Equal(t, 2, stats.Local)
	assert.Equal(t, stats.Total, stats.Active+stats.Inactive+stats.Error)
	assert.Equal(t, stats.Total, stats.ServerSide+stats.Local)

	require.Len(t, stats.Services, 4)
	assert.Equal(t, ServiceSummary{
		Name:         "postgres",
		Status:       types.StatusActive,
		Location:     types.LocationServer,
		Capabilities: 2,
	}, stats.Services[2])
}

func TestShutdown(t *testing.T) {
	r := newTestRegistry()
	failing := &mockHandler{shutdown: errors.New("close failed")}
	ok1 := &mockHandler{}
	ok2 := &mockHandler{}

	require.NoError(t, r.Register(serverDesc("a"), failing))
	require.NoError(t, r.Register(serverDesc("b"), ok1))
	require.NoError(t, r.Register(serverDesc("c"), plainHandler{}))
	require.NoError(t, r.Register(serverDesc("d"), ok2))
	require.NoError(t, r.Register(localDesc("git"), nil))

	r.Shutdown(context.Background())

	assert.Equal(t, int32(1), failing.shutdowns.Load())
	assert.Equal(t, int32(1), ok1.shutdowns.Load())
	assert.Equal(t, int32(1), ok2.shutdowns.Load())
	assert.Empty(t, r.List())
	assert.Zero(t, r.Stats().Total)
}

func TestConcurrentDispatch(t *testing.T) {
	r := newTestRegistry()
	h := &mockHandler{caps: []types.Capability{types.Op("query", "")}}
	require.NoError(t, r.Register(serverDesc("postgres"), h))
	require.NoError(t, r.Register(localDesc("git"), nil))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := r.Execute(context.Background(), types.Params{Service: "postgres", Operation: "query"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_ = r.UpdateStatus("git", types.StatusActive, "")
			_ = r.Stats()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), h.calls.Load())
}
