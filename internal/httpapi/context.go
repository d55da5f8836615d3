package httpapi

import (
	"context"
)

// serverBaseCtx is canceled on shutdown so that waiting handlers return.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level context handlers join with their
// request context. nil restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives from req (keeping its values) and is also canceled
// when base ends. The cancel func must be called when the handler returns.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
