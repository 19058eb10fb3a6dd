package bunx

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

// MetricsHook feeds every Bun query into the database instruments.
type MetricsHook struct {
	Metrics *telemetry.DatabaseMetrics
}

var _ bun.QueryHook = (*MetricsHook)(nil)

func (h *MetricsHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if h.Metrics == nil {
		return
	}
	elapsed := float64(time.Since(event.StartTime).Microseconds()) / 1000
	h.Metrics.RecordQuery(ctx, event.Operation(), elapsed, event.Err)
}
