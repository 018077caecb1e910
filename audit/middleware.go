package audit

import (
	"context"
	"time"

	"github.com/tomrobin33/docforge/kit"
)

// ToolMiddleware returns an endpoint middleware that records one invocation
// row per call. Tool name and transport come from the request context;
// filename, for tools that have one, comes from the extractor.
func ToolMiddleware(r *Recorder, filename func(req any) string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if r != nil {
				inv := Invocation{
					ToolName:  kit.GetToolName(ctx),
					Transport: kit.GetTransport(ctx),
					Success:   err == nil,
					Duration:  time.Since(start),
				}
				if filename != nil {
					inv.Filename = filename(req)
				}
				if err != nil {
					inv.Detail = err.Error()
				}
				r.RecordInvocation(ctx, inv)
			}
			return resp, err
		}
	}
}
