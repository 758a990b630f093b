package host

import (
	"encoding/json"
)

// Operation names accepted on the wire.
const (
	OpOrient = "orient"
	OpSearch = "search"
	OpRead   = "read"
	OpWrite  = "write"
	OpDelete = "delete"
	OpList   = "list"
)

// requestSchema validates the envelope before dispatch. Params are validated
// per-op by the engine; the schema only pins the envelope shape.
const requestSchema = `{
	"type": "object",
	"required": ["op"],
	"additionalProperties": false,
	"properties": {
		"id": {"type": "string"},
		"op": {
			"type": "string",
			"enum": ["orient", "search", "read", "write", "delete", "list"]
		},
		"params": {"type": "object"}
	}
}`

// Request is one line of the protocol. A missing id gets a generated UUID so
// the response is still correlatable.
type Request struct {
	ID     string          `json:"id,omitempty"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response mirrors the request id and carries either a result or an error.
type Response struct {
	ID     string         `json:"id"`
	OK     bool           `json:"ok"`
	Result interface{}    `json:"result,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError is a machine-readable failure.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned on the wire.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeInvalidCategory = "invalid_category"
	CodeInternal        = "internal"
)

func okResponse(id string, result interface{}) Response {
	return Response{ID: id, OK: true, Result: result}
}

func errResponse(id, code, message string) Response {
	return Response{ID: id, OK: false, Error: &ResponseError{Code: code, Message: message}}
}
