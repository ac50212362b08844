package config

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/redjax/syncrun/internal/logging"
	envservice "github.com/redjax/syncrun/internal/services/envService"
)

const (
	AppName    = "syncrun"
	EnvPrefix  = "SYNCRUN_"
	configName = "config.toml"

	DefaultLogLevel     = "debug"
	DefaultRelativeTo   = "${HOME}"
	DefaultTimezone     = "UTC"
	DefaultTimestampFmt = "%Y-%m-%d_%T"
)

// IgnoreSettings controls file discovery. Unset (nil) toggles fall through to
// the next settings layer.
type IgnoreSettings struct {
	// Skip hidden files and directories
	Hidden *bool `koanf:"hidden"`
	// Read ignore files from parent directories of the sync root
	Parents *bool `koanf:"parents"`
	// Honor .ignore files
	Ignore *bool `koanf:"ignore"`
	// Honor the global gitignore file
	GitGlobal *bool `koanf:"git_global"`
	// Honor .gitignore files
	GitIgnore *bool `koanf:"git_ignore"`
	// Honor .git/info/exclude
	GitExclude *bool `koanf:"git_exclude"`
	// Do not cross file system boundaries
	SameFileSystem *bool `koanf:"same_file_system"`
}

type GeneralSettings struct {
	LogLevel string `koanf:"log_level"`
	// Globs excluded from every sync entry
	Exclude []string `koanf:"exclude"`
	// Base path relative sync paths are resolved against
	RelativeTo   envservice.Expression `koanf:"relative_to"`
	Timezone     string                `koanf:"timezone"`
	TimestampFmt string                `koanf:"timestamp_fmt"`

	IgnoreSettings `koanf:",squash"`
}

type SyncSettings struct {
	Path    string   `koanf:"path"`
	Exclude []string `koanf:"exclude"`

	IgnoreSettings `koanf:",squash"`
}

type RemoteSettings struct {
	User        string                `koanf:"user"`
	Host        netip.Addr            `koanf:"host"`
	Destination envservice.Expression `koanf:"destination"`
}

type Config struct {
	General GeneralSettings `koanf:"general"`
	Sync    []SyncSettings  `koanf:"sync"`
	Remote  RemoteSettings  `koanf:"remote"`

	// Path of the file the config was read from.
	Source string `koanf:"-"`
}

// DefaultPath returns the config file location. An existing file in any XDG
// config directory wins; otherwise the path under XDG_CONFIG_HOME is returned.
func DefaultPath() string {
	rel := filepath.Join(AppName, configName)
	if found, err := xdg.SearchConfigFile(rel); err == nil {
		return found
	}

	return filepath.Join(xdg.ConfigHome, rel)
}

// Load reads the config file at path, then environment overrides
// (SYNCRUN_GENERAL__LOG_LEVEL -> general.log_level), then the command-line
// --log-level flag if flags is non-nil and the flag was set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	parser, err := parserForFile(path)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("error loading config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment overrides: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey), nil); err != nil {
			return nil, fmt.Errorf("error loading flags: %w", err)
		}
	}

	for _, required := range []string{"sync", "remote"} {
		if !k.Exists(required) {
			return nil, fmt.Errorf("%s: missing required key %q", path, required)
		}
	}

	var cfg Config
	if err := unmarshal(k, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

func unmarshal(k *koanf.Koanf, cfg *Config) error {
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	})
}

func (c *Config) applyDefaults() {
	g := &c.General
	if g.LogLevel == "" {
		g.LogLevel = DefaultLogLevel
	}
	if g.RelativeTo == "" {
		g.RelativeTo = DefaultRelativeTo
	}
	if g.Timezone == "" {
		g.Timezone = DefaultTimezone
	}
	if g.TimestampFmt == "" {
		g.TimestampFmt = DefaultTimestampFmt
	}
}

// Validate reports configuration errors that can be detected before any
// sync work starts.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.General.LogLevel); err != nil {
		return err
	}
	if _, err := envservice.ParseExpression(string(c.General.RelativeTo)); err != nil {
		return fmt.Errorf("general.relative_to: %w", err)
	}

	for i, s := range c.Sync {
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("sync[%d]: path is required", i)
		}
	}

	if c.Remote.User == "" {
		return fmt.Errorf("remote.user is required")
	}
	if !c.Remote.Host.IsValid() {
		return fmt.Errorf("remote.host must be an IP address")
	}
	if c.Remote.Destination == "" {
		return fmt.Errorf("remote.destination is required")
	}
	if _, err := envservice.ParseExpression(string(c.Remote.Destination)); err != nil {
		return fmt.Errorf("remote.destination: %w", err)
	}

	return nil
}

// envKey maps SYNCRUN_GENERAL__LOG_LEVEL to general.log_level.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// flagKey only lets an explicitly set --log-level through to the config.
func flagKey(f *pflag.Flag) (string, interface{}) {
	if f.Name != "log-level" || !f.Changed {
		return "", nil
	}

	return "general.log_level", f.Value.String()
}

func parserForFile(path string) (koanf.Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unknown config file extension: %q", ext)
	}
}
