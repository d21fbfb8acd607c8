package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/domain/command"
	"github.com/GriffinCanCode/capgate/internal/domain/health"
	"github.com/GriffinCanCode/capgate/internal/domain/service"
	"github.com/GriffinCanCode/capgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/capgate/internal/shared/id"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	registry *service.Registry
	parser   *command.Parser
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	monitor  *health.Monitor
	started  time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(registry *service.Registry, parser *command.Parser, logger *zap.Logger) *Handlers {
	if parser == nil {
		parser = command.NewParser()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		registry: registry,
		parser:   parser,
		logger:   logger,
		started:  time.Now(),
	}
}

// WithMetrics enables the metrics endpoints
func (h *Handlers) WithMetrics(m *monitoring.Metrics) *Handlers {
	h.metrics = m
	return h
}

// WithMonitor adds health probe results to /health
func (h *Handlers) WithMonitor(m *health.Monitor) *Handlers {
	h.monitor = m
	return h
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.POST("/execute", h.Execute)
	r.POST("/rpc", h.RPC)

	r.GET("/catalog", h.Catalog)
	r.GET("/service/:name", h.Service)
	r.POST("/test/:service", h.Test)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
		r.GET("/metrics/json", h.MetricsJSON)
	}
}

// ExecuteRequest is the body of POST /execute
type ExecuteRequest struct {
	Command string         `json:"command"`
	ID      any            `json:"id,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Root reports the service identity
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "capgate",
		"version": Version,
	})
}

// Health reports registry state; degraded when any service is in error
func (h *Handlers) Health(c *gin.Context) {
	stats := h.registry.Stats()
	status := "healthy"
	if stats.Error > 0 {
		status = "degraded"
	}

	body := gin.H{
		"status":   status,
		"uptime":   time.Since(h.started).Seconds(),
		"registry": stats,
	}
	if h.monitor != nil {
		body["checks"] = h.monitor.Last()
	}
	c.JSON(http.StatusOK, body)
}

// Execute parses a command string and dispatches it
func (h *Handlers) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(types.NewError(types.CodeInvalidRequest, "invalid request body: "+err.Error(), nil))
		return
	}
	if req.Command == "" {
		_ = c.Error(types.Errorf(types.CodeInvalidRequest, "command is required"))
		return
	}

	params, err := h.parser.Parse(req.Command)
	if err != nil {
		_ = c.Error(err)
		return
	}
	params.Options = req.Options

	result, err := h.registry.Execute(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	reqID := req.ID
	if reqID == nil || reqID == "" {
		reqID = id.NewRequestID().String()
	}
	c.JSON(http.StatusOK, newRPCResponse(result, reqID))
}

// RPC serves JSON-RPC 2.0 requests
func (h *Handlers) RPC(c *gin.Context) {
	markRPC(c, nil)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(types.NewError(types.CodeInvalidRequest, "failed to read body: "+err.Error(), nil))
		return
	}

	var req RPCRequest
	if err := rpcAPI.Unmarshal(body, &req); err != nil {
		_ = c.Error(types.NewError(types.CodeInvalidRequest, "invalid JSON: "+err.Error(), nil))
		return
	}
	if req.ID != nil {
		markRPC(c, req.ID)
	}
	if err := req.validate(); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.call(c, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newRPCResponse(result, req.ID))
}

func (h *Handlers) call(c *gin.Context, req RPCRequest) (any, error) {
	switch req.Method {
	case MethodExecute:
		var params types.Params
		if err := req.decodeParams(&params); err != nil {
			return nil, err
		}
		if params.Service == "" {
			return nil, types.NewError(types.CodeInvalidParams, "service is required",
				map[string]any{"method": req.Method})
		}
		return h.registry.Execute(c.Request.Context(), params)

	case MethodListServices:
		return gin.H{"services": h.listServices()}, nil

	case MethodGetCapabilities:
		var p struct {
			Service string `json:"service"`
		}
		if err := req.decodeParams(&p); err != nil {
			return nil, err
		}
		if p.Service == "" {
			return nil, types.NewError(types.CodeInvalidParams, "service is required",
				map[string]any{"method": req.Method})
		}
		handler, ok := h.registry.Handler(p.Service)
		if !ok {
			return nil, types.NewError(types.CodeServiceNotFound,
				"no handler registered for "+p.Service,
				map[string]any{"service": p.Service})
		}
		return gin.H{"service": p.Service, "capabilities": handler.Capabilities()}, nil

	case MethodGetStatistics:
		return h.registry.Stats(), nil
	}

	return nil, types.NewError(types.CodeMethodNotFound, "method not found: "+req.Method,
		map[string]any{
			"method":           req.Method,
			"availableMethods": []string{MethodExecute, MethodListServices, MethodGetCapabilities, MethodGetStatistics},
		})
}

// ServiceSummary is the mcp.listServices projection of a descriptor
type ServiceSummary struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	Description  string         `json:"description"`
	Location     types.Location `json:"location"`
	Status       types.Status   `json:"status"`
	Capabilities []string       `json:"capabilities"`
}

func (h *Handlers) listServices() []ServiceSummary {
	descs := h.registry.List()
	out := make([]ServiceSummary, 0, len(descs))
	for _, d := range h.withLiveCapabilities(descs) {
		out = append(out, ServiceSummary{
			Name:         d.Name,
			Version:      d.Version,
			Description:  d.Description,
			Location:     d.Location,
			Status:       d.Status,
			Capabilities: types.CapabilityNames(d.Capabilities),
		})
	}
	return out
}

// withLiveCapabilities replaces static capability lists with the handler's
func (h *Handlers) withLiveCapabilities(descs []types.ServiceDescriptor) []types.ServiceDescriptor {
	for i := range descs {
		if handler, ok := h.registry.Handler(descs[i].Name); ok {
			descs[i].Capabilities = handler.Capabilities()
		}
	}
	return descs
}

// Catalog lists every service with registry statistics
func (h *Handlers) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services":   h.withLiveCapabilities(h.registry.List()),
		"statistics": h.registry.Stats(),
		"timestamp":  time.Now().UTC(),
	})
}

// Service returns one descriptor
func (h *Handlers) Service(c *gin.Context) {
	name := c.Param("name")
	desc, ok := h.registry.Get(name)
	if !ok {
		_ = c.Error(types.NewError(types.CodeServiceNotFound, "service not found: "+name,
			map[string]any{"service": name}))
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": h.withLiveCapabilities([]types.ServiceDescriptor{desc})[0]})
}

// Test dispatches the "test" operation against one service
func (h *Handlers) Test(c *gin.Context) {
	name := c.Param("service")
	result, err := h.registry.Execute(c.Request.Context(), types.Params{
		Service:   name,
		Operation: "test",
		Args:      types.NewArgs(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"service":   name,
		"status":    result.Status,
		"result":    result,
		"timestamp": time.Now().UTC(),
	})
}

// MetricsJSON returns running totals alongside registry counts
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().UTC(),
		"uptime":    h.metrics.UptimeSeconds(),
		"totals":    h.metrics.Snapshot(),
		"registry":  h.registry.Stats(),
	})
}
