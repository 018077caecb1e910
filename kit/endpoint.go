// Package kit provides the transport-agnostic endpoint abstraction shared by
// every tool surface in docforge. A tool is written once as an Endpoint and
// registered on whichever transport the process exposes (MCP stdio,
// MCP streamable HTTP).
package kit

import "context"

// Endpoint is a transport-agnostic request handler.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares outermost-first: Chain(a, b, c)(e) runs
// a → b → c → e.
func Chain(mws ...Middleware) Middleware {
	return func(e Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			e = mws[i](e)
		}
		return e
	}
}
