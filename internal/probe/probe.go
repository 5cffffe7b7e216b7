// Package probe lists the MAC addresses currently connected to the router.
package probe

import (
	"context"
	"fmt"

	"github.com/bavix/dobson/internal/config"
	customerrors "github.com/bavix/dobson/internal/errors"
)

// Enumerator returns the normalized MAC addresses the router currently sees.
// Failures wrap errors.ErrProbe.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]string, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc func(ctx context.Context) ([]string, error)

func (f EnumeratorFunc) Enumerate(ctx context.Context) ([]string, error) { return f(ctx) }

// New builds the configured driver, instrumented and cached.
func New(cfg config.SNMPConfig) (Enumerator, error) {
	var e Enumerator

	switch cfg.Driver {
	case config.DriverNative, "":
		e = NewSNMP(cfg)
	case config.DriverSNMPWalk:
		e = NewSNMPWalk(cfg, nil)
	default:
		return nil, fmt.Errorf("%w: %q", customerrors.ErrUnsupportedSNMPDriver, cfg.Driver)
	}

	e = NewMetricsEnumerator(e, cfg.Driver)

	if cfg.CacheTTL > 0 {
		e = NewCachedEnumerator(e, cfg.CacheTTL)
	}

	return e, nil
}
