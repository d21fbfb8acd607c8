package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

func newTestHandler(t *testing.T, mux *http.ServeMux) *Handler {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	h, err := New(Config{BaseURL: srv.URL, APIKey: "n8n-key"}, nil)
	require.NoError(t, err)
	return h
}

func call(op string, kv ...any) types.Params {
	return types.Params{Service: ServiceName, Operation: op, Args: types.NewArgs(kv...)}
}

func TestValidateParams(t *testing.T) {
	h := NewWithClient(nil, nil)

	assert.NoError(t, h.ValidateParams(call("listWorkflows")))
	assert.Error(t, h.ValidateParams(call("activateWorkflow")))
	assert.Error(t, h.ValidateParams(call("triggerWebhook")))
	assert.Error(t, h.ValidateParams(call("triggerWebhook", "path", "../admin")))
	assert.NoError(t, h.ValidateParams(call("triggerWebhook", "path", "orders/new")))
}

func TestListWorkflows(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "n8n-key", r.Header.Get(apiKeyHeader))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"Sync"}],"nextCursor":null}`))
	})
	h := newTestHandler(t, mux)

	res, err := h.Execute(context.Background(), call("listWorkflows", "active", true))
	require.NoError(t, err)
	assert.Len(t, res.Data.(map[string]any)["data"], 1)
}

func TestActivateAndDeactivate(t *testing.T) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/workflows/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.PathValue("id")+":"+r.PathValue("action"))
		_, _ = w.Write([]byte(`{"id":"7","active":true}`))
	})
	h := newTestHandler(t, mux)

	_, err := h.Execute(context.Background(), call("activateWorkflow", "id", "7"))
	require.NoError(t, err)
	_, err = h.Execute(context.Background(), call("deactivateWorkflow", "id", "7"))
	require.NoError(t, err)
	assert.Equal(t, []string{"7:activate", "7:deactivate"}, calls)
}

func TestListExecutions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/executions", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "7", q.Get("workflowId"))
		assert.Equal(t, "error", q.Get("status"))
		assert.Equal(t, "10", q.Get("limit"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	h := newTestHandler(t, mux)

	_, err := h.Execute(context.Background(), call("listExecutions",
		"workflowId", "7", "status", "error", "limit", 10))
	require.NoError(t, err)
}

func TestTriggerWebhook(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/orders/new", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(42), body["order"])
		_, _ = w.Write([]byte(`{"message":"Workflow was started"}`))
	})
	mux.HandleFunc("POST /webhook-test/orders/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"test"}`))
	})
	h := newTestHandler(t, mux)

	res, err := h.Execute(context.Background(), call("triggerWebhook",
		"path", "/orders/new", "data", map[string]any{"order": 42}))
	require.NoError(t, err)
	assert.Equal(t, "Workflow was started", res.Data.(map[string]any)["message"])

	res, err = h.Execute(context.Background(), call("triggerWebhook", "path", "orders/new", "test", true))
	require.NoError(t, err)
	assert.Equal(t, "test", res.Data.(map[string]any)["message"])
}

func TestTestAndHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	h := newTestHandler(t, mux)

	res, err := h.Execute(context.Background(), call("test"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"connected": true}, res.Data)
	assert.NoError(t, h.Health(context.Background()))
}

func TestUnauthorizedIsPlainError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/workflows/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h := newTestHandler(t, mux)

	_, err := h.Execute(context.Background(), call("getWorkflow", "id", "1"))
	require.Error(t, err)
	_, isGateway := types.AsError(err)
	assert.False(t, isGateway)
}
