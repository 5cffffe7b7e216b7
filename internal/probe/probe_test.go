package probe_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavix/dobson/internal/config"
	customerrors "github.com/bavix/dobson/internal/errors"
	"github.com/bavix/dobson/internal/probe"
)

const walkOutput = `IP-MIB::ipNetToMediaPhysAddress.12.192.168.0.7 = Hex-STRING: 74 4A A4 CC 81 A1
IP-MIB::ipNetToMediaPhysAddress.12.192.168.0.9 = Hex-STRING: 00 1A 2B 3C 4D 5E
IP-MIB::ipNetToMediaPhysAddress.12.192.168.0.10 = Hex-STRING: 00 1A
IP-MIB::ipNetToMediaType.12.192.168.0.7 = INTEGER: dynamic(3)
IP-MIB::ipNetToMediaPhysAddress.12.192.168.0.11 = Hex-STRING: ZZ 1A 2B 3C 4D 5E
`

func snmpConfig(driver string) config.SNMPConfig {
	return config.SNMPConfig{
		Driver:       driver,
		Target:       "192.168.0.1",
		Port:         161,
		Community:    "public",
		Version:      "1",
		OID:          ".1.3.6.1.2.1.3.1.1.2.12.1",
		Timeout:      time.Second,
		SNMPWalkPath: "/usr/bin/snmpwalk",
	}
}

func TestMACFromPDU(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pdu  gosnmp.SnmpPDU
		want string
		ok   bool
	}{
		{
			name: "six bytes",
			pdu:  gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte{0x74, 0x4a, 0xa4, 0xcc, 0x81, 0xa1}},
			want: "74:4a:a4:cc:81:a1",
			ok:   true,
		},
		{name: "short", pdu: gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte{0x74, 0x4a}}},
		{name: "integer", pdu: gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 3}},
		{name: "wrong value type", pdu: gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: "74:4a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := probe.MACFromPDU(tt.pdu)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSNMPWalk(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"74:4a:a4:cc:81:a1", "00:1a:2b:3c:4d:5e"}, probe.ParseSNMPWalk([]byte(walkOutput)))
	assert.Empty(t, probe.ParseSNMPWalk(nil))
	assert.NotNil(t, probe.ParseSNMPWalk(nil))
}

func TestSNMPWalkEnumerate(t *testing.T) {
	t.Parallel()

	var gotName string

	var gotArgs []string

	walker := probe.NewSNMPWalk(snmpConfig(config.DriverSNMPWalk), func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args

		return []byte(walkOutput), nil
	})

	macs, err := walker.Enumerate(t.Context())
	require.NoError(t, err)
	assert.Len(t, macs, 2)
	assert.Equal(t, "/usr/bin/snmpwalk", gotName)
	assert.Equal(t, []string{"-v1", "-c", "public", "192.168.0.1", ".1.3.6.1.2.1.3.1.1.2.12.1"}, gotArgs)
}

func TestSNMPWalkArgsWithPort(t *testing.T) {
	t.Parallel()

	cfg := snmpConfig(config.DriverSNMPWalk)
	cfg.Port = 1161
	cfg.Version = "2c"

	assert.Equal(t,
		[]string{"-v2c", "-c", "public", "192.168.0.1:1161", ".1.3.6.1.2.1.3.1.1.2.12.1"},
		probe.NewSNMPWalk(cfg, nil).Args())
}

func TestSNMPWalkFailure(t *testing.T) {
	t.Parallel()

	walker := probe.NewSNMPWalk(snmpConfig(config.DriverSNMPWalk), func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1: Timeout: No Response from 192.168.0.1")
	})

	_, err := walker.Enumerate(t.Context())
	require.ErrorIs(t, err, customerrors.ErrProbe)
	assert.Contains(t, err.Error(), "No Response")
}

func TestSNMPWalkMissingBinary(t *testing.T) {
	t.Parallel()

	cfg := snmpConfig(config.DriverSNMPWalk)
	cfg.SNMPWalkPath = "/nonexistent/snmpwalk"

	_, err := probe.NewSNMPWalk(cfg, nil).Enumerate(t.Context())
	require.ErrorIs(t, err, customerrors.ErrProbe)
	assert.ErrorIs(t, err, customerrors.ErrRequiredToolNotFound)
}

func TestSNMPUnreachable(t *testing.T) {
	t.Parallel()

	cfg := snmpConfig(config.DriverNative)
	cfg.Target = "127.0.0.1"
	cfg.Port = 1
	cfg.Timeout = 100 * time.Millisecond
	cfg.Retries = 0

	_, err := probe.NewSNMP(cfg).Enumerate(t.Context())
	require.ErrorIs(t, err, customerrors.ErrProbe)
}

func TestCachedEnumerator(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	next := probe.EnumeratorFunc(func(context.Context) ([]string, error) {
		calls.Add(1)

		return []string{"aa:aa"}, nil
	})

	cached := probe.NewCachedEnumerator(next, time.Minute)

	for range 3 {
		macs, err := cached.Enumerate(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []string{"aa:aa"}, macs)
	}

	assert.Equal(t, int32(1), calls.Load())

	cached.Invalidate()

	_, err := cached.Enumerate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedEnumeratorReturnsCopies(t *testing.T) {
	t.Parallel()

	cached := probe.NewCachedEnumerator(probe.EnumeratorFunc(func(context.Context) ([]string, error) {
		return []string{"aa:aa"}, nil
	}), time.Minute)

	first, err := cached.Enumerate(t.Context())
	require.NoError(t, err)

	first[0] = "mutated"

	second, err := cached.Enumerate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"aa:aa"}, second)
}

func TestCachedEnumeratorDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	cached := probe.NewCachedEnumerator(probe.EnumeratorFunc(func(context.Context) ([]string, error) {
		calls.Add(1)

		return nil, customerrors.ErrProbe
	}), time.Minute)

	for range 2 {
		_, err := cached.Enumerate(t.Context())
		require.ErrorIs(t, err, customerrors.ErrProbe)
	}

	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedEnumeratorCoalesces(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	release := make(chan struct{})
	started := make(chan struct{})

	var once sync.Once

	cached := probe.NewCachedEnumerator(probe.EnumeratorFunc(func(context.Context) ([]string, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release

		return []string{"aa:aa"}, nil
	}), time.Minute)

	const callers = 8

	var wg sync.WaitGroup

	results := make([][]string, callers)

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i], _ = cached.Enumerate(t.Context())
		}()
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())

	for _, r := range results {
		assert.Equal(t, []string{"aa:aa"}, r)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{config.DriverNative, config.DriverSNMPWalk} {
		e, err := probe.New(snmpConfig(driver))
		require.NoError(t, err)
		assert.NotNil(t, e)
	}

	cfg := snmpConfig(config.DriverNative)
	cfg.CacheTTL = time.Second

	e, err := probe.New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &probe.CachedEnumerator{}, e)

	_, err = probe.New(snmpConfig("telnet"))
	require.ErrorIs(t, err, customerrors.ErrUnsupportedSNMPDriver)
}

func TestMetricsEnumeratorPassesThrough(t *testing.T) {
	t.Parallel()

	m := probe.NewMetricsEnumerator(probe.EnumeratorFunc(func(context.Context) ([]string, error) {
		return []string{"aa:aa"}, nil
	}), config.DriverNative)

	macs, err := m.Enumerate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"aa:aa"}, macs)
}
