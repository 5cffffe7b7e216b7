package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavix/dobson/cmd"
	customerrors "github.com/bavix/dobson/internal/errors"
)

const fakeSNMPWalk = `#!/bin/sh
echo 'iso.3.6.1.2.1.3.1.1.2.12.1.192.168.0.10 = Hex-STRING: AA BB CC DD EE 01 '
echo 'iso.3.6.1.2.1.3.1.1.2.12.1.192.168.0.11 = Hex-STRING: AA BB CC DD EE 02 '
echo 'iso.3.6.1.2.1.3.1.1.2.12.1.192.168.0.12 = Hex-STRING: AA BB CC DD EE 03 '
`

type env struct {
	dir     string
	config  string
	devices string
	macLog  string
}

func newEnv(t *testing.T) env {
	t.Helper()

	dir := t.TempDir()

	walk := filepath.Join(dir, "snmpwalk")
	require.NoError(t, os.WriteFile(walk, []byte(fakeSNMPWalk), 0o755)) //nolint:gosec // test script

	e := env{
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		devices: filepath.Join(dir, "devices.json"),
		macLog:  filepath.Join(dir, "macs.log"),
	}

	cfg := "location: ozone\n" +
		"registry:\n  path: " + e.devices + "\n  watch: false\n" +
		"mac_address_log_file: " + e.macLog + "\n" +
		"snmp:\n  driver: snmpwalk\n  snmpwalk_path: " + walk + "\n  cache_ttl: 0s\n"
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o600))

	return e
}

func execute(t *testing.T, e env, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := cmd.NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.config, "--log-level", "error"}, args...))

	err := root.ExecuteContext(t.Context())

	return out.String(), err
}

func TestRegisterAndDevices(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	out, err := execute(t, e, "register", "AA:BB:CC:DD:EE:01", "Sean", "Pixel")
	require.NoError(t, err)
	assert.Equal(t, "registered aa:bb:cc:dd:ee:01 for Sean\n", out)

	out, err = execute(t, e, "register", "aa-bb-cc-dd-ee-01", "Jo")
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:01 is already registered\n", out)

	_, err = execute(t, e, "register", "--untracked", "aa:bb:cc:dd:ee:03", "Office", "Printer")
	require.NoError(t, err)

	out, err = execute(t, e, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "aa:bb:cc:dd:ee:01  Sean")
	assert.Contains(t, out, "Printer")
	assert.Contains(t, out, "2 devices")

	data, err := os.ReadFile(e.devices)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"aa:bb:cc:dd:ee:03": {`)
}

func TestRegisterRejectsInvalidMAC(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := execute(t, e, "register", "not-a-mac", "Sean")
	require.ErrorIs(t, err, customerrors.ErrInvalidMAC)

	_, err = execute(t, e, "register", "aa:bb:cc:dd:ee:01")
	require.Error(t, err)
}

func TestWho(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := execute(t, e, "register", "aa:bb:cc:dd:ee:01", "Sean")
	require.NoError(t, err)
	_, err = execute(t, e, "register", "aa:bb:cc:dd:ee:02", "Jo")
	require.NoError(t, err)

	out, err := execute(t, e, "who", "--template", "classic")
	require.NoError(t, err)
	assert.Equal(t, "Sean and Jo are at ozone, along with 1 unknown device.\n", out)

	out, err = execute(t, e, "who", "--template", "classic", "--list-unknown")
	require.NoError(t, err)
	assert.Equal(t, "Sean and Jo are at ozone, along with the following unknown device: aa:bb:cc:dd:ee:03.\n", out)

	out, err = execute(t, e, "who", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"unknown": [`)
}

func TestLogMACs(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := execute(t, e, "log-macs")
	require.NoError(t, err)
	_, err = execute(t, e, "log-macs")
	require.NoError(t, err)

	data, err := os.ReadFile(e.macLog)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], ":00 aa:bb:cc:dd:ee:01 aa:bb:cc:dd:ee:02 aa:bb:cc:dd:ee:03"), lines[0])
}

func TestCheck(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := execute(t, e, "check")
	require.NoError(t, err)
}

func TestRunRequiresSlackSettings(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := execute(t, e, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack.api_token")
}

func TestMissingConfig(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.config = filepath.Join(e.dir, "missing.yaml")

	_, err := execute(t, e, "who")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVersionFlag(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	root := cmd.NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "dobson "))
}
