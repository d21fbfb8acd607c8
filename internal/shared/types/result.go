package types

import "time"

// ResultStatusSuccess is the status of every successful dispatch
const ResultStatusSuccess = "success"

// Metadata is the cost and latency envelope attached to every result
type Metadata struct {
	ExecutionTime int64     `json:"executionTime"` // milliseconds
	TokensUsed    int       `json:"tokensUsed"`
	Cost          float64   `json:"cost"`
	Service       string    `json:"service"`
	Operation     string    `json:"operation"`
	Timestamp     time.Time `json:"timestamp"`
}

// Result is the uniform response of a dispatched operation
type Result struct {
	Status   string   `json:"status"`
	Data     any      `json:"data"`
	Metadata Metadata `json:"metadata"`
}

// Success wraps data in a successful result
func Success(data any) *Result {
	return &Result{Status: ResultStatusSuccess, Data: data}
}
