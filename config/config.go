package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/layer-3/dealguard/adapters/sui"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultPackageID is the escrow contract deployed on devnet
const DefaultPackageID = "0x085260c1fcb11036d90b859999b9d1b1b9785f2f5d07ea872f3fb543f7066022"

// Setting keys. Each one is also read from the environment variable of the
// same name in upper case, so KeyPort is PORT.
const (
	KeyPort           = "port"
	KeyGinMode        = "gin_mode"
	KeyLogLevel       = "log_level"
	KeyNetwork        = "sui_network"
	KeyNodeURL        = "sui_node_url"
	KeyPackageID      = "package_id"
	KeyGoogleClientID = "google_client_id"
	KeyOrigin         = "origin"
	KeySaltServiceURL = "salt_service_url"
	KeySessionFile    = "session_file"
	KeyRedisURL       = "redis_url"
	KeyProfile        = "profile"
	KeyDemoSamples    = "demo_samples"
	KeyPollInterval   = "poll_interval_seconds"
)

// flagNames maps settings to the command line flags that override them
var flagNames = map[string]string{
	KeyPort:        "port",
	KeyLogLevel:    "log-level",
	KeyNetwork:     "network",
	KeyNodeURL:     "node-url",
	KeyPackageID:   "package",
	KeyDemoSamples: "demo-samples",
}

// Config is the runtime configuration of the companion service
type Config struct {
	Port           int
	GinMode        string
	LogLevel       string
	Network        string
	NodeURL        string
	PackageID      string
	GoogleClientID string
	Origin         string
	SaltServiceURL string
	SessionFile    string
	RedisURL       string
	Profile        string
	DemoSamples    bool
	PollInterval   time.Duration
}

// RedirectURI is the callback the identity provider returns to
func (c Config) RedirectURI() string {
	return strings.TrimSuffix(c.Origin, "/") + "/auth/callback"
}

// NewViper returns the settings with their defaults, reading the environment
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyGinMode, "release")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyNetwork, sui.DefaultNetwork)
	v.SetDefault(KeyNodeURL, "")
	v.SetDefault(KeyPackageID, DefaultPackageID)
	v.SetDefault(KeyGoogleClientID, "")
	v.SetDefault(KeyOrigin, "")
	v.SetDefault(KeySaltServiceURL, "")
	v.SetDefault(KeySessionFile, "dealguard-session.json")
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyProfile, "default")
	v.SetDefault(KeyDemoSamples, true)
	v.SetDefault(KeyPollInterval, 10)
	v.AutomaticEnv()
	return v
}

// BindFlags lets the flags of fs that were set on the command line take
// precedence over the environment
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagNames {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

// LoadConfig reads the configuration from the environment
func LoadConfig() (Config, error) {
	return Load(NewViper())
}

// Load validates the settings held by v
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		GinMode:        v.GetString(KeyGinMode),
		LogLevel:       v.GetString(KeyLogLevel),
		Network:        v.GetString(KeyNetwork),
		NodeURL:        v.GetString(KeyNodeURL),
		PackageID:      v.GetString(KeyPackageID),
		GoogleClientID: v.GetString(KeyGoogleClientID),
		Origin:         v.GetString(KeyOrigin),
		SaltServiceURL: v.GetString(KeySaltServiceURL),
		SessionFile:    v.GetString(KeySessionFile),
		RedisURL:       v.GetString(KeyRedisURL),
		Profile:        v.GetString(KeyProfile),
	}

	port, err := cast.ToIntE(v.Get(KeyPort))
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT")
	}
	cfg.Port = port

	if cfg.NodeURL == "" {
		cfg.NodeURL = sui.NetworkURL(cfg.Network)
	}

	if !sui.IsValidAddress(cfg.PackageID) {
		return Config{}, fmt.Errorf("invalid PACKAGE_ID")
	}

	if cfg.Origin == "" {
		cfg.Origin = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if u, err := url.Parse(cfg.Origin); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("invalid ORIGIN")
	}

	if cfg.GoogleClientID != "" && cfg.SaltServiceURL == "" {
		return Config{}, fmt.Errorf("SALT_SERVICE_URL is required with GOOGLE_CLIENT_ID")
	}

	if cfg.DemoSamples, err = cast.ToBoolE(v.Get(KeyDemoSamples)); err != nil {
		return Config{}, fmt.Errorf("invalid DEMO_SAMPLES")
	}

	seconds, err := cast.ToIntE(v.Get(KeyPollInterval))
	if err != nil || seconds <= 0 {
		return Config{}, fmt.Errorf("invalid POLL_INTERVAL_SECONDS")
	}
	cfg.PollInterval = time.Duration(seconds) * time.Second

	return cfg, nil
}
