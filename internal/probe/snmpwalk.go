package probe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bavix/dobson/internal/config"
	customerrors "github.com/bavix/dobson/internal/errors"
)

const hexStringMarker = "Hex-STRING:"

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// SNMPWalk shells out to net-snmp's snmpwalk binary.
type SNMPWalk struct {
	cfg config.SNMPConfig
	run Runner
}

// NewSNMPWalk uses run to execute snmpwalk; nil means os/exec.
func NewSNMPWalk(cfg config.SNMPConfig, run Runner) *SNMPWalk {
	if run == nil {
		run = execRunner
	}

	return &SNMPWalk{cfg: cfg, run: run}
}

// Args returns the snmpwalk command line without the binary.
func (s *SNMPWalk) Args() []string {
	target := s.cfg.Target
	if s.cfg.Port != 0 && s.cfg.Port != 161 {
		target = fmt.Sprintf("%s:%d", target, s.cfg.Port)
	}

	return []string{"-v" + s.cfg.Version, "-c", s.cfg.Community, target, s.cfg.OID}
}

func (s *SNMPWalk) Enumerate(ctx context.Context) ([]string, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout*time.Duration(s.cfg.Retries+1))
		defer cancel()
	}

	out, err := s.run(ctx, s.cfg.SNMPWalkPath, s.Args()...)
	if err != nil {
		return nil, customerrors.ErrProbeWithTarget(s.cfg.Target, err)
	}

	return ParseSNMPWalk(out), nil
}

// ParseSNMPWalk extracts MACs from lines such as
//
//	IP-MIB::ipNetToMediaPhysAddress.12.192.168.0.7 = Hex-STRING: 74 4A A4 CC 81 A1
func ParseSNMPWalk(out []byte) []string {
	macs := make([]string, 0)

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		_, value, ok := strings.Cut(sc.Text(), hexStringMarker)
		if !ok {
			continue
		}

		octets := strings.Fields(value)
		if len(octets) != macLen || !allHexOctets(octets) {
			continue
		}

		macs = append(macs, strings.ToLower(strings.Join(octets, ":")))
	}

	return macs
}

func allHexOctets(octets []string) bool {
	for _, o := range octets {
		if len(o) != 2 || strings.Trim(o, "0123456789abcdefABCDEF") != "" {
			return false
		}
	}

	return true
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, customerrors.ErrRequiredToolNotFoundWithTool(name)
	}

	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // binary path comes from config
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}

		return nil, err
	}

	return out, nil
}
