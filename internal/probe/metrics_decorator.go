package probe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bavix/dobson/internal/metrics"
)

// MetricsEnumerator records scan outcome and latency.
type MetricsEnumerator struct {
	Next   Enumerator
	Driver string
}

func NewMetricsEnumerator(next Enumerator, driver string) *MetricsEnumerator {
	return &MetricsEnumerator{Next: next, Driver: driver}
}

func (m *MetricsEnumerator) Enumerate(ctx context.Context) ([]string, error) {
	start := time.Now()
	macs, err := m.Next.Enumerate(ctx)
	elapsed := time.Since(start)

	metrics.ObserveProbe(m.Driver, elapsed, err)

	zerolog.Ctx(ctx).Debug().
		Str("driver", m.Driver).
		Dur("elapsed", elapsed).
		Int("macs", len(macs)).
		Err(err).
		Msg("router scan")

	return macs, err
}
