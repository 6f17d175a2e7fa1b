package httpapi

import (
	"context"

	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

// The correlation id rides on the logging context key so every
// InfoContext/WarnContext record below the middleware carries it.
func withCorrelationID(ctx context.Context, correlationID string) context.Context {
	return logging.WithCorrelationID(ctx, correlationID)
}

func correlationIDFromContext(ctx context.Context) string {
	return logging.CorrelationID(ctx)
}
