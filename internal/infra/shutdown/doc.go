// Package shutdown coordinates process termination.
//
// SignalContext cancels a context on SIGINT or SIGTERM; long-running
// commands (shell, portal) and slow startup work such as session
// restoration watch that context. Handler runs registered cleanup hooks,
// newest first, exactly once, whether shutdown came from a signal or from
// a command finishing normally.
//
// Usage:
//
//	ctx, stop := shutdown.SignalContext(context.Background())
//	defer stop()
//	h := shutdown.NewHandler(5*time.Second, logger)
//	h.OnShutdown("kv", func(ctx context.Context) error { return kv.Close() })
//	defer h.Shutdown()
package shutdown
