package presence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/bavix/dobson/internal/errors"
	"github.com/bavix/dobson/internal/presence"
	"github.com/bavix/dobson/internal/probe"
	"github.com/bavix/dobson/internal/registry"
)

type fakeRegistry map[string]registry.Device

func (f fakeRegistry) Lookup(mac string) (registry.Device, bool) {
	d, ok := f[registry.NormalizeMAC(mac)]

	return d, ok
}

func TestResolve(t *testing.T) {
	t.Parallel()

	devices := fakeRegistry{
		"aa:aa": {Presence: true, User: "Sean", Model: "Pixel"},
		"cc:cc": {Presence: false, User: "Printer", Model: "HP"},
		"dd:dd": {Presence: true, User: "Jo", Model: "iPhone"},
	}

	tests := []struct {
		name      string
		observed  []string
		users     []string
		unknown   []string
		untracked int
	}{
		{name: "empty scan", observed: nil, users: []string{}, unknown: []string{}},
		{
			name:     "duplicates collapse",
			observed: []string{"AA:AA", "bb:bb", "AA:AA"},
			users:    []string{"Sean"},
			unknown:  []string{"bb:bb"},
		},
		{
			name:      "first observed order",
			observed:  []string{"dd:dd", "ee:ee", "aa:aa", "cc:cc", "bb:bb"},
			users:     []string{"Jo", "Sean"},
			unknown:   []string{"ee:ee", "bb:bb"},
			untracked: 1,
		},
		{
			name:     "normalizes separators and case",
			observed: []string{" DD-DD ", "dd:dd"},
			users:    []string{"Jo"},
			unknown:  []string{},
		},
		{name: "blank entries skipped", observed: []string{"", "  "}, users: []string{}, unknown: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := presence.Resolve(tt.observed, devices)

			assert.Equal(t, tt.users, res.Users())
			assert.Equal(t, tt.unknown, res.Unknown)
			assert.Len(t, res.Untracked, tt.untracked)
			assert.NotNil(t, res.Present)
			assert.NotNil(t, res.Untracked)
		})
	}
}

func TestServiceQuery(t *testing.T) {
	t.Parallel()

	enum := probe.EnumeratorFunc(func(context.Context) ([]string, error) {
		return []string{"aa:aa", "bb:bb"}, nil
	})

	svc := presence.NewService(enum, fakeRegistry{"aa:aa": {Presence: true, User: "Sean"}})

	res, err := svc.Query(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"Sean"}, res.Users())
	assert.Equal(t, []string{"bb:bb"}, res.Unknown)
}

func TestServiceQueryWrapsProbeErrors(t *testing.T) {
	t.Parallel()

	enum := probe.EnumeratorFunc(func(context.Context) ([]string, error) {
		return nil, errors.New("request timeout")
	})

	_, err := presence.NewService(enum, fakeRegistry{}).Query(t.Context())
	require.ErrorIs(t, err, customerrors.ErrProbe)
	assert.Contains(t, err.Error(), "request timeout")
}
