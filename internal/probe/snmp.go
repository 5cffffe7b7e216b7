package probe

import (
	"context"
	"net"
	"strconv"

	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog"

	"github.com/bavix/dobson/internal/config"
	customerrors "github.com/bavix/dobson/internal/errors"
)

const macLen = 6

// SNMP walks the router's ARP table with gosnmp.
type SNMP struct {
	cfg config.SNMPConfig
}

func NewSNMP(cfg config.SNMPConfig) *SNMP {
	return &SNMP{cfg: cfg}
}

func (s *SNMP) Enumerate(ctx context.Context) ([]string, error) {
	target := net.JoinHostPort(s.cfg.Target, strconv.Itoa(int(s.cfg.Port)))

	client := &gosnmp.GoSNMP{
		Target:    s.cfg.Target,
		Port:      s.cfg.Port,
		Community: s.cfg.Community,
		Version:   snmpVersion(s.cfg.Version),
		Timeout:   s.cfg.Timeout,
		Retries:   s.cfg.Retries,
		Context:   ctx,
		MaxOids:   gosnmp.MaxOids,
	}

	if err := client.Connect(); err != nil {
		return nil, customerrors.ErrProbeWithTarget(target, err)
	}

	defer func() { _ = client.Conn.Close() }()

	macs := make([]string, 0)
	collect := func(pdu gosnmp.SnmpPDU) error {
		if mac, ok := MACFromPDU(pdu); ok {
			macs = append(macs, mac)
		} else {
			zerolog.Ctx(ctx).Debug().Str("oid", pdu.Name).Msg("skipping non-MAC value")
		}

		return nil
	}

	walk := client.Walk
	if client.Version != gosnmp.Version1 {
		walk = client.BulkWalk
	}

	if err := walk(s.cfg.OID, collect); err != nil {
		return nil, customerrors.ErrProbeWithTarget(target, err)
	}

	return macs, nil
}

// MACFromPDU converts a 6-byte OctetString varbind into "aa:bb:cc:dd:ee:ff".
func MACFromPDU(pdu gosnmp.SnmpPDU) (string, bool) {
	if pdu.Type != gosnmp.OctetString {
		return "", false
	}

	b, ok := pdu.Value.([]byte)
	if !ok || len(b) != macLen {
		return "", false
	}

	return net.HardwareAddr(b).String(), true
}

func snmpVersion(v string) gosnmp.SnmpVersion {
	if v == "2c" {
		return gosnmp.Version2c
	}

	return gosnmp.Version1
}
