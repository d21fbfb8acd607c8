package http

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// JSONRPCVersion is the only protocol version accepted
const JSONRPCVersion = "2.0"

// RPC method names
const (
	MethodExecute         = "mcp.execute"
	MethodListServices    = "mcp.listServices"
	MethodGetCapabilities = "mcp.getCapabilities"
	MethodGetStatistics   = "mcp.getStatistics"
)

// rpcAPI decodes like encoding/json
var rpcAPI = sonic.ConfigStd

// RPCRequest is a JSON-RPC 2.0 request
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 success response
type RPCResponse struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result"`
	ID      any    `json:"id"`
}

// RPCErrorResponse is a JSON-RPC 2.0 error response
type RPCErrorResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	Error   RPCError `json:"error"`
	ID      any      `json:"id"`
}

// RPCError carries the numeric code plus the gateway code in data
type RPCError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    RPCErrorData `json:"data"`
}

// RPCErrorData keeps the stable string code and details
type RPCErrorData struct {
	Code    types.Code     `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func newRPCResponse(result, id any) RPCResponse {
	return RPCResponse{JSONRPC: JSONRPCVersion, Result: result, ID: id}
}

func newRPCError(err *types.Error, id any) RPCErrorResponse {
	return RPCErrorResponse{
		JSONRPC: JSONRPCVersion,
		Error: RPCError{
			Code:    err.Code.RPCCode(),
			Message: err.Message,
			Data:    RPCErrorData{Code: err.Code, Details: err.Details},
		},
		ID: id,
	}
}

func (r RPCRequest) validate() error {
	switch {
	case r.JSONRPC != JSONRPCVersion:
		return types.NewError(types.CodeInvalidRequest, `jsonrpc must be "2.0"`,
			map[string]any{"jsonrpc": r.JSONRPC})
	case r.Method == "":
		return types.Errorf(types.CodeInvalidRequest, "method is required")
	case r.ID == nil:
		return types.Errorf(types.CodeInvalidRequest, "id is required")
	}
	switch r.ID.(type) {
	case string, float64:
		return nil
	}
	return types.Errorf(types.CodeInvalidRequest, "id must be a string or number")
}

func (r RPCRequest) decodeParams(v any) error {
	if len(r.Params) == 0 || string(r.Params) == "null" {
		return types.NewError(types.CodeInvalidParams, "params are required",
			map[string]any{"method": r.Method})
	}
	if err := rpcAPI.Unmarshal(r.Params, v); err != nil {
		return types.NewError(types.CodeInvalidParams, "params are not valid: "+err.Error(),
			map[string]any{"method": r.Method})
	}
	return nil
}
