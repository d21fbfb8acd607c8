package workflow

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/providers/restclient"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// ServiceName is the name the handler is registered under
const ServiceName = "n8n"

const apiKeyHeader = "X-N8N-API-KEY"

// Config configures the API client
type Config struct {
	BaseURL string
	APIKey  string
}

// ListArgs is the argument shape of listWorkflows
type ListArgs struct {
	Active *bool `json:"active,omitempty"`
	Limit  int   `json:"limit,omitempty"`
}

// WorkflowArgs identifies a workflow
type WorkflowArgs struct {
	ID string `json:"id"`
}

// ExecutionsArgs is the argument shape of listExecutions
type ExecutionsArgs struct {
	WorkflowID string `json:"workflowId,omitempty"`
	Status     string `json:"status,omitempty" jsonschema:"enum=success,enum=error,enum=waiting"`
	Limit      int    `json:"limit,omitempty"`
}

// WebhookArgs is the argument shape of triggerWebhook
type WebhookArgs struct {
	Path string         `json:"path" jsonschema:"description=Webhook path configured on the trigger node"`
	Data map[string]any `json:"data,omitempty"`
	Test bool           `json:"test,omitempty" jsonschema:"description=Use the editor's test webhook"`
}

// Handler serves the n8n operations
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
	rc.Token = cfg.APIKey
	rc.AuthHeader = apiKeyHeader
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
		types.NewCapability[ListArgs]("listWorkflows", "List workflows"),
		types.NewCapability[WorkflowArgs]("getWorkflow", "Get one workflow"),
		types.NewCapability[WorkflowArgs]("activateWorkflow", "Activate a workflow"),
		types.NewCapability[WorkflowArgs]("deactivateWorkflow", "Deactivate a workflow"),
		types.NewCapability[ExecutionsArgs]("listExecutions", "List workflow executions"),
		types.NewCapability[WebhookArgs]("triggerWebhook", "Trigger a workflow through its webhook"),
		types.Op("test", "Check API connectivity"),
	}
}

// ValidateParams checks required arguments
func (h *Handler) ValidateParams(params types.Params) error {
	switch params.Operation {
	case "getWorkflow", "activateWorkflow", "deactivateWorkflow":
		return params.Require("id")
	case "triggerWebhook":
		if err := params.Require("path"); err != nil {
			return err
		}
		if strings.Contains(params.String("path"), "..") {
			return types.NewError(types.CodeInvalidParams, "webhook path must not contain ..",
				map[string]any{"path": params.String("path")})
		}
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
	case "listWorkflows":
		query := map[string]string{}
		if v, ok := params.Arg("active"); ok && v != nil {
			query["active"] = strconv.FormatBool(params.Bool("active", false))
		}
		if n := params.Int("limit", 0); n > 0 {
			query["limit"] = strconv.Itoa(n)
		}
		data, err = h.client.Get(ctx, "/api/v1/workflows", query)
	case "getWorkflow":
		data, err = h.client.Get(ctx, workflowPath(params), nil)
	case "activateWorkflow":
		data, err = h.client.Post(ctx, workflowPath(params)+"/activate", nil)
		h.logTransition(params, "activate", err)
	case "deactivateWorkflow":
		data, err = h.client.Post(ctx, workflowPath(params)+"/deactivate", nil)
		h.logTransition(params, "deactivate", err)
	case "listExecutions":
		query := map[string]string{}
		if id := params.String("workflowId"); id != "" {
			query["workflowId"] = id
		}
		if s := params.String("status"); s != "" {
			query["status"] = s
		}
		if n := params.Int("limit", 0); n > 0 {
			query["limit"] = strconv.Itoa(n)
		}
		data, err = h.client.Get(ctx, "/api/v1/executions", query)
	case "triggerWebhook":
		prefix := "/webhook/"
		if params.Bool("test", false) {
			prefix = "/webhook-test/"
		}
		body := params.Map("data")
		if body == nil {
			body = map[string]any{}
		}
		data, err = h.client.Post(ctx, prefix+strings.TrimLeft(params.String("path"), "/"), body)
	case "test":
		data, err = h.client.Get(ctx, "/api/v1/workflows", map[string]string{"limit": "1"})
		if err == nil {
			data = map[string]any{"connected": true}
		}
	default:
		return nil, types.Errorf(types.CodeOperationNotSupported, "unknown operation: %s", params.Operation)
	}

	if err != nil {
		return nil, err
	}
	return types.Success(data), nil
}

// Health lists one workflow
func (h *Handler) Health(ctx context.Context) error {
	_, err := h.client.Get(ctx, "/api/v1/workflows", map[string]string{"limit": "1"})
	return err
}

// Shutdown releases idle connections
func (h *Handler) Shutdown(context.Context) error {
	h.client.Close()
	return nil
}

func (h *Handler) logTransition(params types.Params, action string, err error) {
	if err != nil {
		return
	}
	h.logger.Info("Workflow state changed",
		zap.String("workflow", params.String("id")),
		zap.String("action", action),
	)
}

func workflowPath(params types.Params) string {
	return "/api/v1/workflows/" + url.PathEscape(params.String("id"))
}
