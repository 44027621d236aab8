package contxt

import (
	"context"
	"os"
	"time"
)

// NewContext returns a background context with the given timeout, or a
// plain background context when running under CONTEXT_TEST.
func NewContext(timeout time.Duration) context.Context {
	if os.Getenv("CONTEXT_TEST") != "" {
		return context.Background()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}
