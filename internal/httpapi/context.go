package httpapi

import (
	"context"
	"net/http"
)

// serverBaseCtx is cancelled on shutdown. Background until SetBaseContext.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level context whose cancellation stops
// every running generation. nil resets it to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// generateContext derives the context a generation runs under from r. It
// keeps the request's values and ends when the client goes away, when the
// base context is cancelled, or after the generate timeout. The returned
// func must be called when the handler returns.
func generateContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(serverBaseCtx, cancel)
	if d := generateDeadline(); d > 0 {
		tctx, tcancel := context.WithTimeout(ctx, d)
		return tctx, func() {
			stop()
			tcancel()
			cancel()
		}
	}
	return ctx, func() {
		stop()
		cancel()
	}
}
