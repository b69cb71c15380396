// Package capability defines the contract between the dispatcher and the
// modules it exposes over /api/{module}/{function}.
package capability

import (
	"context"

	"github.com/telhawk-systems/schoolhub/internal/response"
)

// Handler executes one exposed function. Expected failures are returned in
// the Result; a non-nil error is an unexpected fault and becomes a 500.
type Handler func(ctx context.Context, req *Request) (response.Result, error)

// Middleware runs before a handler. Returning an error stops the chain;
// a *response.Error keeps its status, any other error becomes a 500.
type Middleware func(ctx context.Context, req *Request) error

// Module is the declaration a capability hands to the registry.
//
// Exposed holds "verb=functionName" entries. Every function named there must
// be present in Functions, and Middlewares may only name exposed functions.
type Module struct {
	Name        string
	Exposed     []string
	Functions   map[string]Handler
	Middlewares map[string][]Middleware
}

// Provider is implemented by every capability that can describe itself.
type Provider interface {
	Module() Module
}
