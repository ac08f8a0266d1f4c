package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// New builds the process logger. Development gets the console encoder; every
// other environment logs JSON.
func New(environment string) (*zap.Logger, error) {
	if environment == "development" || environment == "test" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, falling back to the global one.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.L()
}
