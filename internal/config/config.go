// Package config holds the launcher settings and loads them from flags and
// optional TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// DefaultHost is the loopback address the server binds to unless told otherwise.
const DefaultHost = "127.0.0.1"

// DefaultShutdownTimeout bounds how long in-flight requests may run after an interrupt.
const DefaultShutdownTimeout = 5 * time.Second

// FileNames are the config files looked up in the served folder, in order.
var FileNames = []string{"servelocal.toml", "servelocal.yaml", "servelocal.yml"}

var (
	// ErrUnknownFormat is returned for config files that are neither TOML nor YAML.
	ErrUnknownFormat = errors.New("unknown config format")
	// ErrNonLoopback is returned when the host is not a loopback address.
	ErrNonLoopback = errors.New("host is not a loopback address")
)

// Config is the fully resolved launcher configuration.
type Config struct {
	// Host is the address the listener binds to. Always loopback.
	Host string
	// Port is the TCP port. 0 picks an ephemeral port.
	Port int
	// Dir is the folder to serve.
	Dir string
	// OpenBrowser controls whether the default browser is launched.
	OpenBrowser bool
	// Quiet disables per-request logging.
	Quiet bool
	// NoColor disables colored console output.
	NoColor bool
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Partial is a set of optional settings. Nil fields leave the base value alone.
// It is both the shape of config files and of explicitly set flags.
type Partial struct {
	Host            *string `toml:"host" yaml:"host"`
	Port            *int    `toml:"port" yaml:"port"`
	Dir             *string `toml:"dir" yaml:"dir"`
	OpenBrowser     *bool   `toml:"open_browser" yaml:"open_browser"`
	Quiet           *bool   `toml:"quiet" yaml:"quiet"`
	NoColor         *bool   `toml:"no_color" yaml:"no_color"`
	ShutdownTimeout *string `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:            DefaultHost,
		Port:            0,
		Dir:             ".",
		OpenBrowser:     true,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Merge returns c with every non-nil field of p applied.
func (c Config) Merge(p Partial) (Config, error) {
	c.Host = lo.FromPtrOr(p.Host, c.Host)
	c.Port = lo.FromPtrOr(p.Port, c.Port)
	c.Dir = lo.FromPtrOr(p.Dir, c.Dir)
	c.OpenBrowser = lo.FromPtrOr(p.OpenBrowser, c.OpenBrowser)
	c.Quiet = lo.FromPtrOr(p.Quiet, c.Quiet)
	c.NoColor = lo.FromPtrOr(p.NoColor, c.NoColor)

	if p.ShutdownTimeout != nil {
		d, err := time.ParseDuration(*p.ShutdownTimeout)
		if err != nil {
			return c, fmt.Errorf("invalid shutdown_timeout %q: %w", *p.ShutdownTimeout, err)
		}
		c.ShutdownTimeout = d
	}
	return c, nil
}

// Validate reports whether c can be used to start a server.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range [0, 65535]", c.Port)
	}
	if !isLoopback(c.Host) {
		return fmt.Errorf("%q: %w", c.Host, ErrNonLoopback)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	if strings.TrimSpace(c.Dir) == "" {
		return errors.New("directory must not be empty")
	}
	return nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

// Load reads a config file. The format is chosen by extension. A relative
// dir is taken relative to the folder holding the file.
func Load(path string) (Partial, error) {
	var p Partial

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &p); err != nil {
			return p, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return p, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}

	if p.Dir != nil && !filepath.IsAbs(*p.Dir) {
		p.Dir = lo.ToPtr(filepath.Join(filepath.Dir(path), *p.Dir))
	}
	return p, nil
}

// Discover returns the first config file from FileNames present in dir,
// or "" when there is none. A discovered file sits in the served folder
// and is therefore reachable over HTTP like any other file.
func Discover(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Resolve builds the final configuration: defaults, then the config file,
// then explicitly set flags. When path is empty the served folder is
// searched with Discover. It returns the config file used, if any.
func Resolve(path string, flags Partial) (Config, string, error) {
	base, err := Default().Merge(flags)
	if err != nil {
		return Config{}, "", err
	}

	if path == "" {
		path = Discover(base.Dir)
	}

	cfg := Default()
	if path != "" {
		file, err := Load(path)
		if err != nil {
			return Config{}, path, err
		}
		if cfg, err = cfg.Merge(file); err != nil {
			return Config{}, path, err
		}
	}

	if cfg, err = cfg.Merge(flags); err != nil {
		return Config{}, path, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, path, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}
