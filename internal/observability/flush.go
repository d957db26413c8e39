package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry flushes telemetry buffers before process exit. Prometheus is
// pull-based so metrics need no flush; this drains buffered spans and logs.
// Call during graceful shutdown after in-flight requests have completed.
func FlushTelemetry(ctx context.Context, logger *zap.Logger, tracerShutdown func(context.Context) error) error {
	if tracerShutdown != nil {
		if err := tracerShutdown(ctx); err != nil {
			return fmt.Errorf("flush traces: %w", err)
		}
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}
