package cloud

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/providers/restclient"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// ServiceName is the name the handler is registered under
const ServiceName = "cloud"

// Config configures the API client
type Config struct {
	BaseURL string
	Token   string
}

// ListArgs is the argument shape of listInstances
type ListArgs struct {
	Region string `json:"region,omitempty"`
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// InstanceArgs is the argument shape of getInstance and deleteInstance
type InstanceArgs struct {
	ID string `json:"id"`
}

// CreateArgs is the argument shape of createInstance
type CreateArgs struct {
	Name   string            `json:"name"`
	Type   string            `json:"type" jsonschema:"description=Machine type, e.g. small"`
	Region string            `json:"region"`
	Image  string            `json:"image,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Handler serves the cloud operations
type Handler struct {
	client *restclient.Client
	logger *zap.Logger
}

// New creates a handler; BaseURL is required
func New(cfg Config, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := restclient.DefaultConfig(ServiceName, cfg.BaseURL)
	rc.Token = cfg.Token
	rc.Logger = logger

	client, err := restclient.New(rc)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps a configured client
func NewWithClient(client *restclient.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: client, logger: logger.With(zap.String("service", ServiceName))}
}

// Capabilities lists the supported operations
func (h *Handler) Capabilities() []types.Capability {
	return []types.Capability{
		types.NewCapability[ListArgs]("listInstances", "List compute instances"),
		types.NewCapability[InstanceArgs]("getInstance", "Get one instance"),
		types.NewCapability[CreateArgs]("createInstance", "Create an instance"),
		types.NewCapability[InstanceArgs]("deleteInstance", "Delete an instance"),
		types.Op("listRegions", "List available regions"),
		types.Op("test", "Check API connectivity"),
	}
}

// ValidateParams checks required arguments
func (h *Handler) ValidateParams(params types.Params) error {
	switch params.Operation {
	case "getInstance", "deleteInstance":
		return params.Require("id")
	case "createInstance":
		return params.Require("name", "type", "region")
	}
	return nil
}

// Execute runs one operation
func (h *Handler) Execute(ctx context.Context, params types.Params) (*types.Result, error) {
	var (
		data any
		err  error
	)

	switch params.Operation {
	case "listInstances":
		query := map[string]string{}
		if r := params.String("region"); r != "" {
			query["region"] = r
		}
		if s := params.String("status"); s != "" {
			query["status"] = s
		}
		if n := params.Int("limit", 0); n > 0 {
			query["limit"] = strconv.Itoa(n)
		}
		data, err = h.client.Get(ctx, "/instances", query)
	case "getInstance":
		data, err = h.client.Get(ctx, instancePath(params), nil)
	case "createInstance":
		body := map[string]any{
			"name":   params.String("name"),
			"type":   params.String("type"),
			"region": params.String("region"),
		}
		if img := params.String("image"); img != "" {
			body["image"] = img
		}
		if tags := params.Map("tags"); tags != nil {
			body["tags"] = tags
		}
		data, err = h.client.Post(ctx, "/instances", body)
		if err == nil {
			h.logger.Info("Instance created", zap.String("name", params.String("name")))
		}
	case "deleteInstance":
		data, err = h.client.Delete(ctx, instancePath(params))
		if err == nil {
			h.logger.Info("Instance deleted", zap.String("id", params.String("id")))
			data = map[string]any{"id": params.String("id"), "deleted": true}
		}
	case "listRegions":
		data, err = h.client.Get(ctx, "/regions", nil)
	case "test":
		if err = h.client.Ping(ctx, "/regions"); err == nil {
			data = map[string]any{"connected": true, "breaker": h.client.BreakerState().String()}
		}
	default:
		return nil, types.Errorf(types.CodeOperationNotSupported, "unknown operation: %s", params.Operation)
	}

	if err != nil {
		return nil, err
	}
	return types.Success(data), nil
}

// Health probes the regions endpoint
func (h *Handler) Health(ctx context.Context) error {
	return h.client.Ping(ctx, "/regions")
}

// Shutdown releases idle connections
func (h *Handler) Shutdown(context.Context) error {
	h.client.Close()
	return nil
}

func instancePath(params types.Params) string {
	return "/instances/" + url.PathEscape(params.String("id"))
}
