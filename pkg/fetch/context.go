package fetch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type fetchContext struct {
	duration prometheus.Observer
}

type contextKey struct{}

// WithContext attaches an observer which receives the duration of every request made with the returned context.
func WithContext(ctx context.Context, duration prometheus.Observer) context.Context {
	return context.WithValue(ctx, contextKey{}, &fetchContext{
		duration: duration,
	})
}

func observeDuration(ctx context.Context, startTime time.Time) {
	if fetchCtx, ok := ctx.Value(contextKey{}).(*fetchContext); ok {
		fetchCtx.duration.Observe(time.Since(startTime).Seconds())
	}
}
