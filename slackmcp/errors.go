package slackmcp

import (
	"errors"
	"fmt"
)

// Sentinel errors for MCP calls.
var (
	// ErrUnauthorized indicates the server rejected the API key.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrHTTPStatus indicates a non-2xx response.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrRPC indicates a JSON-RPC error object in the response.
	ErrRPC = errors.New("json-rpc error")

	// ErrToolFailed indicates the tool ran but reported isError.
	ErrToolFailed = errors.New("tool call failed")
)

// Error wraps MCP errors with the operation that failed.
type Error struct {
	Op         string // "post", "decode", ...
	StatusCode int    // HTTP status, 0 when no response was read
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("slack mcp %s (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("slack mcp %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Is lets errors.Is(err, ErrRPC) match any RPCError.
func (e *RPCError) Is(target error) bool {
	return target == ErrRPC
}
