// Package common holds the shared request/response plumbing every
// jive_* tool uses: the {success, data, error} response envelope,
// namespace resolution against a service.Service, and parameter
// decoding.
package common

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/store"
)

// Envelope is the closed response shape every jive_* tool returns:
// {success, data?, error?}.
type Envelope struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload is the structured error body.
type ErrorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Success wraps data in a successful envelope.
func Success(data any) (*mcp.ToolsCallResult, error) {
	return mcp.JSONResult(Envelope{Success: true, Data: data})
}

// Fail wraps err in a failed envelope, translating an *apperr.Error (or
// any error CodeOf can classify) into the stable code/message/details
// triple. It never returns a Go error itself — a tool failure is a
// successful MCP call carrying success:false, not an RPC-level error.
func Fail(err error) (*mcp.ToolsCallResult, error) {
	var ae *apperr.Error
	var details map[string]any
	if errors.As(err, &ae) {
		details = ae.Details
	}
	return mcp.JSONResult(Envelope{
		Success: false,
		Error: &ErrorPayload{
			Code:    string(apperr.CodeOf(err)),
			Message: err.Error(),
			Details: details,
		},
	})
}

// UnknownAction builds the {success:false} envelope for an
// unrecognized action/sub-action value.
func UnknownAction(action string) (*mcp.ToolsCallResult, error) {
	return Fail(apperr.Newf(apperr.UnknownAction, "unknown action %q", action))
}

// Handle resolves params.Namespace against svc and returns the open
// store, a context bound to the call's worker-pool slot and request
// timeout, and a release func the caller must defer.
func Handle(ctx context.Context, svc *service.Service, requestedNamespace string) (*store.Store, context.Context, func(), error) {
	ns, err := svc.DefaultNamespace(requestedNamespace)
	if err != nil {
		return nil, nil, func() {}, err
	}
	return svc.Handle(ctx, ns)
}

// Decode unmarshals raw tool params into a typed struct, wrapping a
// malformed-JSON error in the stable ValidationError code.
func Decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.Wrap(apperr.ValidationError, "invalid tool parameters", err)
	}
	return nil
}
