// Package registry keeps the known devices file: MAC address to owner.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	customerrors "github.com/bavix/dobson/internal/errors"
	"github.com/bavix/dobson/internal/metrics"
)

const (
	fileMode   = 0o644
	dirMode    = 0o755
	emptyStore = "{}\n"
	macBytes   = 6
)

var (
	errNotObject    = errors.New("top level must be a JSON object")
	errTrailingData = errors.New("unexpected data after the top level object")
	errMissingField = errors.New("record is missing a field")
	errDuplicateKey = errors.New("duplicate MAC address after normalization")
)

// Device is the stored record for one MAC address. Records are never
// updated once registered.
type Device struct {
	Presence bool   `json:"presence"`
	User     string `json:"user"`
	Model    string `json:"model"`
}

// Entry pairs a normalized MAC with its record.
type Entry struct {
	MAC    string `json:"mac"`
	Device Device `json:"device"`
}

// record mirrors Device with pointers so missing fields are detectable.
type record struct {
	Presence *bool   `json:"presence"`
	User     *string `json:"user"`
	Model    *string `json:"model"`
}

// Registry is safe for concurrent use. Readers see an immutable snapshot;
// writers serialize on mu and swap a fresh copy after persisting it.
type Registry struct {
	path string
	snap atomic.Pointer[map[string]Device]
	mu   sync.Mutex
}

// NormalizeMAC lowercases, trims and maps '-' separators to ':'.
func NormalizeMAC(mac string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(mac)), "-", ":")
}

// ValidMAC reports whether mac is a 48-bit hardware address.
func ValidMAC(mac string) bool {
	hw, err := net.ParseMAC(NormalizeMAC(mac))

	return err == nil && len(hw) == macBytes
}

// Open loads the registry at path, creating an empty store when the file
// does not exist.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path}

	devices, err := load(path)
	if errors.Is(err, os.ErrNotExist) {
		devices = map[string]Device{}
		err = create(path)
	}

	if err != nil {
		return nil, customerrors.ErrStorageWithPath(path, err)
	}

	r.store(devices)

	return r, nil
}

// Path returns the backing file.
func (r *Registry) Path() string { return r.path }

// Lookup finds the record for mac.
func (r *Registry) Lookup(mac string) (Device, bool) {
	d, ok := (*r.snap.Load())[NormalizeMAC(mac)]

	return d, ok
}

// Len returns the number of known devices.
func (r *Registry) Len() int { return len(*r.snap.Load()) }

// All returns every entry sorted by MAC.
func (r *Registry) All() []Entry {
	devices := *r.snap.Load()

	entries := make([]Entry, 0, len(devices))
	for _, mac := range slices.Sorted(maps.Keys(devices)) {
		entries = append(entries, Entry{MAC: mac, Device: devices[mac]})
	}

	return entries
}

// Register adds a device. It returns false without touching anything when
// the MAC is already known. The file is rewritten before the new record
// becomes visible; a failed write leaves both unchanged.
func (r *Registry) Register(mac string, device Device) (bool, error) {
	key := NormalizeMAC(mac)
	if key == "" {
		return false, customerrors.ErrInvalidMACWithValue(mac)
	}

	if strings.TrimSpace(device.User) == "" {
		return false, customerrors.ErrDeviceUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.snap.Load()
	if _, exists := current[key]; exists {
		metrics.RecordRegistration("exists")

		return false, nil
	}

	next := maps.Clone(current)
	next[key] = device

	if err := writeAtomic(r.path, next); err != nil {
		metrics.RecordRegistration("error")

		return false, customerrors.ErrStorageWithPath(r.path, err)
	}

	r.store(next)
	metrics.RecordRegistration("added")

	return true, nil
}

// Reload re-reads the backing file. Malformed content keeps the previous
// snapshot and returns the error.
func (r *Registry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices, err := load(r.path)
	if err != nil {
		return customerrors.ErrStorageWithPath(r.path, err)
	}

	r.store(devices)

	return nil
}

func (r *Registry) store(devices map[string]Device) {
	r.snap.Store(&devices)
	metrics.SetRegistrySize(len(devices))
}

func load(path string) (map[string]Device, error) {
	data, err := os.ReadFile(path) //nolint:gosec // registry path comes from config
	if err != nil {
		return nil, err
	}

	return decode(data)
}

func decode(data []byte) (map[string]Device, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw map[string]*record
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	if raw == nil {
		return nil, errNotObject
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	devices := make(map[string]Device, len(raw))

	for mac, rec := range raw {
		if rec == nil || rec.Presence == nil || rec.User == nil || rec.Model == nil {
			return nil, fmt.Errorf("%w: %s", errMissingField, mac)
		}

		key := NormalizeMAC(mac)
		if _, dup := devices[key]; dup {
			return nil, fmt.Errorf("%w: %s", errDuplicateKey, key)
		}

		devices[key] = Device{Presence: *rec.Presence, User: *rec.User, Model: *rec.Model}
	}

	return devices, nil
}

func create(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(emptyStore), fileMode)
}

// writeAtomic replaces path via a synced temp file in the same directory.
func writeAtomic(path string, devices map[string]Device) error {
	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return err
	}

	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, fileMode); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
