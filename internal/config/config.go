package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	yaml "github.com/goccy/go-yaml"
)

const (
	// DefaultPath is used when --config is not given.
	DefaultPath = "/etc/dobson/config.yaml"

	DriverNative   = "native"
	DriverSNMPWalk = "snmpwalk"

	defaultAppName           = "dobson"
	defaultBotName           = "dobson"
	defaultLocation          = "ozone"
	defaultKnownDevicesFile  = "devices.json"
	defaultMacLogFile        = "macs.log"
	defaultSNMPTarget        = "192.168.0.1"
	defaultSNMPPort          = 161
	defaultSNMPCommunity     = "public"
	defaultSNMPVersion       = "1"
	defaultSNMPOID           = ".1.3.6.1.2.1.3.1.1.2.12.1"
	defaultSNMPTimeout       = 5 * time.Second
	defaultSNMPRetries       = 1
	defaultSNMPCacheTTL      = 5 * time.Second
	defaultSNMPWalkPath      = "/usr/bin/snmpwalk"
	defaultPollInterval      = time.Second
	defaultReceiveTimeout    = time.Second
	defaultReconnectDelay    = 5 * time.Second
	defaultMaxReconnectDelay = time.Minute
	defaultHTTPListen        = "127.0.0.1:47824"
	defaultHTTPReadTimeout   = 10 * time.Second
	defaultHTTPWriteTimeout  = 30 * time.Second
	defaultHTTPIdleTimeout   = 120 * time.Second
	defaultHTTPRateLimit     = 10
	defaultHTTPRateBurst     = 20
)

var (
	errBotNameEmpty            = errors.New("bot_name cannot be empty")
	errLocationEmpty           = errors.New("location cannot be empty")
	errKnownDevicesFileEmpty   = errors.New("registry.path cannot be empty")
	errSlackTokenRequired      = errors.New("slack.api_token is required")
	errAllowedChannelsRequired = errors.New("slack.allowed_channel_ids must list at least one channel")
	errEmptyChannelID          = errors.New("slack.allowed_channel_ids contains an empty channel id")
	errPollIntervalNonPositive = errors.New("slack.poll_interval must be positive")
	errReconnectDelayOrder     = errors.New("slack.reconnect_delay cannot exceed slack.max_reconnect_delay")
	errUnknownSNMPDriver       = errors.New("snmp.driver must be native or snmpwalk")
	errUnknownSNMPVersion      = errors.New("snmp.version must be 1 or 2c")
	errSNMPTargetEmpty         = errors.New("snmp.target cannot be empty")
	errSNMPOIDEmpty            = errors.New("snmp.oid cannot be empty")
	errSNMPTimeoutNonPositive  = errors.New("snmp.timeout must be positive")
	errSNMPRetriesNegative     = errors.New("snmp.retries cannot be negative")
	errSNMPCacheTTLNegative    = errors.New("snmp.cache_ttl cannot be negative")
	errAddressMustBeHostPort   = errors.New("address must be host:port or :port")
)

// SlackConfig holds the chat transport settings.
type SlackConfig struct {
	APIToken          string        `yaml:"api_token"`
	BotUserID         string        `yaml:"bot_user_id,omitempty"`
	AllowedChannelIDs []string      `yaml:"allowed_channel_ids"`
	PollInterval      time.Duration `yaml:"poll_interval,omitempty"`
	ReceiveTimeout    time.Duration `yaml:"receive_timeout,omitempty"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay,omitempty"`
	MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay,omitempty"`
}

// SNMPConfig describes how connected MAC addresses are read from the router.
type SNMPConfig struct {
	Driver       string        `yaml:"driver,omitempty"` // native|snmpwalk
	Target       string        `yaml:"target,omitempty"`
	Port         uint16        `yaml:"port,omitempty"`
	Community    string        `yaml:"community,omitempty"`
	Version      string        `yaml:"version,omitempty"` // 1|2c
	OID          string        `yaml:"oid,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Retries      int           `yaml:"retries,omitempty"`
	CacheTTL     time.Duration `yaml:"-"`
	SNMPWalkPath string        `yaml:"snmpwalk_path,omitempty"`

	// RawCacheTTL is cache_ttl as written; nil means the default, 0 disables the scan cache.
	RawCacheTTL *time.Duration `yaml:"cache_ttl,omitempty"`
}

// RegistryConfig points at the known devices file.
type RegistryConfig struct {
	Path  string `yaml:"path,omitempty"`
	Watch *bool  `yaml:"watch,omitempty"`
}

// WatchEnabled reports whether external edits of the file are picked up (default true).
func (r RegistryConfig) WatchEnabled() bool {
	return r.Watch == nil || *r.Watch
}

// LogConfig defines logging configuration.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// HTTPConfig defines HTTP admin server settings.
type HTTPConfig struct {
	Enabled      bool          `yaml:"enabled,omitempty"`
	Listen       string        `yaml:"listen,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
	IdleTimeout  time.Duration `yaml:"idle_timeout,omitempty"`
	RateLimit    int           `yaml:"rate_limit,omitempty"` // requests per second
	RateBurst    int           `yaml:"rate_burst,omitempty"`
	CORSOrigins  []string      `yaml:"cors_origins,omitempty"`
}

// Config is the main application configuration.
type Config struct {
	AppName  string `yaml:"app_name,omitempty"`
	BotName  string `yaml:"bot_name,omitempty"`
	Location string `yaml:"location,omitempty"`

	Slack    SlackConfig    `yaml:"slack"`
	SNMP     SNMPConfig     `yaml:"snmp,omitempty"`
	Registry RegistryConfig `yaml:"registry,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
	HTTP     HTTPConfig     `yaml:"http,omitempty"`

	// KnownDevicesFile is accepted as an alias of registry.path.
	KnownDevicesFile  string `yaml:"known_devices_file,omitempty"`
	MacAddressLogFile string `yaml:"mac_address_log_file,omitempty"`

	Path string `yaml:"-"`
}

// Load reads the YAML file at path, expands ${ENV} references, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path) //nolint:gosec // config file path comes from the operator
	if err != nil {
		return nil, err
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(b))))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg.Path = path

	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() { //nolint:cyclop,funlen
	if c.AppName == "" {
		c.AppName = defaultAppName
	}

	if c.BotName == "" {
		c.BotName = defaultBotName
	}

	c.BotName = strings.ToLower(strings.TrimSpace(c.BotName))

	if c.Location == "" {
		c.Location = defaultLocation
	}

	if c.Registry.Path == "" {
		c.Registry.Path = c.KnownDevicesFile
	}

	if c.Registry.Path == "" {
		c.Registry.Path = defaultKnownDevicesFile
	}

	if c.MacAddressLogFile == "" {
		c.MacAddressLogFile = defaultMacLogFile
	}

	// Slack
	for i := range c.Slack.AllowedChannelIDs {
		c.Slack.AllowedChannelIDs[i] = strings.TrimSpace(c.Slack.AllowedChannelIDs[i])
	}

	if c.Slack.PollInterval == 0 {
		c.Slack.PollInterval = defaultPollInterval
	}

	if c.Slack.ReceiveTimeout <= 0 {
		c.Slack.ReceiveTimeout = defaultReceiveTimeout
	}

	if c.Slack.ReconnectDelay <= 0 {
		c.Slack.ReconnectDelay = defaultReconnectDelay
	}

	if c.Slack.MaxReconnectDelay <= 0 {
		c.Slack.MaxReconnectDelay = defaultMaxReconnectDelay
	}

	// SNMP
	if c.SNMP.Driver == "" {
		c.SNMP.Driver = DriverNative
	}

	c.SNMP.Driver = strings.ToLower(c.SNMP.Driver)

	if c.SNMP.Target == "" {
		c.SNMP.Target = defaultSNMPTarget
	}

	if c.SNMP.Port == 0 {
		c.SNMP.Port = defaultSNMPPort
	}

	if c.SNMP.Community == "" {
		c.SNMP.Community = defaultSNMPCommunity
	}

	if c.SNMP.Version == "" {
		c.SNMP.Version = defaultSNMPVersion
	}

	c.SNMP.Version = strings.TrimPrefix(strings.ToLower(c.SNMP.Version), "v")

	if c.SNMP.OID == "" {
		c.SNMP.OID = defaultSNMPOID
	}

	if c.SNMP.Timeout == 0 {
		c.SNMP.Timeout = defaultSNMPTimeout
	}

	if c.SNMP.Retries == 0 {
		c.SNMP.Retries = defaultSNMPRetries
	}

	c.SNMP.CacheTTL = defaultSNMPCacheTTL
	if c.SNMP.RawCacheTTL != nil {
		c.SNMP.CacheTTL = *c.SNMP.RawCacheTTL
	}

	if c.SNMP.SNMPWalkPath == "" {
		c.SNMP.SNMPWalkPath = defaultSNMPWalkPath
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	// HTTP
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = defaultHTTPListen
	}

	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = defaultHTTPReadTimeout
	}

	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = defaultHTTPWriteTimeout
	}

	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = defaultHTTPIdleTimeout
	}

	if c.HTTP.RateLimit <= 0 {
		c.HTTP.RateLimit = defaultHTTPRateLimit
	}

	if c.HTTP.RateBurst <= 0 {
		c.HTTP.RateBurst = defaultHTTPRateBurst
	}
}

// Validate checks the settings every command needs. Slack settings are
// checked separately by ValidateSlack since offline commands do not use them.
func (c *Config) Validate() error { //nolint:cyclop
	if c.BotName == "" {
		return errBotNameEmpty
	}

	if strings.TrimSpace(c.Location) == "" {
		return errLocationEmpty
	}

	if strings.TrimSpace(c.Registry.Path) == "" {
		return errKnownDevicesFileEmpty
	}

	switch c.SNMP.Driver {
	case DriverNative, DriverSNMPWalk:
	default:
		return fmt.Errorf("%w: %q", errUnknownSNMPDriver, c.SNMP.Driver)
	}

	switch c.SNMP.Version {
	case "1", "2c":
	default:
		return fmt.Errorf("%w: %q", errUnknownSNMPVersion, c.SNMP.Version)
	}

	if c.SNMP.Target == "" {
		return errSNMPTargetEmpty
	}

	if c.SNMP.OID == "" {
		return errSNMPOIDEmpty
	}

	if c.SNMP.Timeout < 0 {
		return errSNMPTimeoutNonPositive
	}

	if c.SNMP.Retries < 0 {
		return errSNMPRetriesNegative
	}

	if c.SNMP.CacheTTL < 0 {
		return errSNMPCacheTTLNegative
	}

	if c.Slack.PollInterval < 0 {
		return errPollIntervalNonPositive
	}

	if c.Slack.ReconnectDelay > c.Slack.MaxReconnectDelay {
		return errReconnectDelayOrder
	}

	if c.HTTP.Enabled {
		if err := validateAddr(c.HTTP.Listen); err != nil {
			return fmt.Errorf("invalid http.listen: %w", err)
		}
	}

	return nil
}

// ValidateSlack checks the settings the chat bot needs.
func (c *Config) ValidateSlack() error {
	if strings.TrimSpace(c.Slack.APIToken) == "" {
		return errSlackTokenRequired
	}

	if len(c.Slack.AllowedChannelIDs) == 0 {
		return errAllowedChannelsRequired
	}

	for _, id := range c.Slack.AllowedChannelIDs {
		if id == "" {
			return errEmptyChannelID
		}
	}

	return nil
}

func validateAddr(addr string) error {
	if !strings.Contains(addr, ":") {
		return errAddressMustBeHostPort
	}

	_, _, err := net.SplitHostPort(addr)

	return err
}
