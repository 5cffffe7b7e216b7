// Package presence turns a router scan into who is here.
package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	customerrors "github.com/bavix/dobson/internal/errors"
	"github.com/bavix/dobson/internal/metrics"
	"github.com/bavix/dobson/internal/probe"
	"github.com/bavix/dobson/internal/registry"
)

// Lookuper is the read side of the device registry.
type Lookuper interface {
	Lookup(mac string) (registry.Device, bool)
}

// Result partitions one scan. Every slice is in first-observed order and
// never nil.
type Result struct {
	Present   []registry.Entry `json:"present"`
	Unknown   []string         `json:"unknown"`
	Untracked []registry.Entry `json:"untracked"`
}

// Users returns the owners of the present devices.
func (r Result) Users() []string {
	users := make([]string, 0, len(r.Present))
	for _, e := range r.Present {
		users = append(users, e.Device.User)
	}

	return users
}

// Resolve normalizes and deduplicates observed MACs and sorts them into
// present, unknown and untracked.
func Resolve(observed []string, devices Lookuper) Result {
	res := Result{
		Present:   []registry.Entry{},
		Unknown:   []string{},
		Untracked: []registry.Entry{},
	}

	seen := make(map[string]struct{}, len(observed))

	for _, raw := range observed {
		mac := registry.NormalizeMAC(raw)
		if mac == "" {
			continue
		}

		if _, dup := seen[mac]; dup {
			continue
		}

		seen[mac] = struct{}{}

		device, known := devices.Lookup(mac)

		switch {
		case !known:
			res.Unknown = append(res.Unknown, mac)
		case device.Presence:
			res.Present = append(res.Present, registry.Entry{MAC: mac, Device: device})
		default:
			res.Untracked = append(res.Untracked, registry.Entry{MAC: mac, Device: device})
		}
	}

	return res
}

// Service runs a scan and resolves it against the registry.
type Service struct {
	enumerator probe.Enumerator
	devices    Lookuper
}

func NewService(enumerator probe.Enumerator, devices Lookuper) *Service {
	return &Service{enumerator: enumerator, devices: devices}
}

// Query scans the router. Failures wrap errors.ErrProbe.
func (s *Service) Query(ctx context.Context) (Result, error) {
	macs, err := s.enumerator.Enumerate(ctx)
	if err != nil {
		if !errors.Is(err, customerrors.ErrProbe) {
			err = fmt.Errorf("%w: %w", customerrors.ErrProbe, err)
		}

		return Result{}, err
	}

	res := Resolve(macs, s.devices)
	metrics.SetPresence(len(res.Present), len(res.Unknown))

	zerolog.Ctx(ctx).Debug().
		Int("observed", len(macs)).
		Int("present", len(res.Present)).
		Int("unknown", len(res.Unknown)).
		Int("untracked", len(res.Untracked)).
		Msg("presence resolved")

	return res, nil
}
