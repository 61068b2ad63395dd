// Package config loads pane-relay configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (PANE_RELAY_*), including values from a .env file
//     in the current directory
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .pane-relay.yaml in current directory
//  2. ~/.config/pane-relay/config.yaml
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PANE_RELAY_"

// Config holds all pane-relay configuration.
type Config struct {
	// Multiplexer
	TmuxServer     string `yaml:"tmux_server"`     // tmux -L socket name; empty uses the default server
	CommandTimeout string `yaml:"command_timeout"` // Go duration string; "0" disables

	// State locations. Empty paths are derived from StateDir.
	StateDir    string `yaml:"state_dir"`
	QueueDir    string `yaml:"queue_dir"`
	PromptDir   string `yaml:"prompt_dir"`
	MappingFile string `yaml:"mapping_file"`
	JournalPath string `yaml:"journal_path"`
	LogDir      string `yaml:"log_dir"` // where tmux pipe-pane writes session_<id>.log

	// Agent API
	AgentURL         string `yaml:"agent_url"`
	Mode             string `yaml:"mode"`          // auto, agent or terminal
	AutoDiscover     *bool  `yaml:"auto_discover"` // nil means true
	DiscoveryPorts   []int  `yaml:"discovery_ports"`
	DiscoveryTimeout string `yaml:"discovery_timeout"`
	HTTPTimeout      string `yaml:"http_timeout"`

	// Logging
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text or json

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed durations (not from YAML, set after loading)
	CommandTimeoutDuration   time.Duration `yaml:"-"`
	DiscoveryTimeoutDuration time.Duration `yaml:"-"`
	HTTPTimeoutDuration      time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	stateDir := ".pane-relay"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".pane-relay")
	}
	return &Config{
		StateDir:         stateDir,
		LogDir:           filepath.Join(os.TempDir(), "tmux_logs"),
		Mode:             "auto",
		DiscoveryPorts:   []int{4096, 4097, 4098, 4099},
		DiscoveryTimeout: "2s",
		HTTPTimeout:      "30s",
		CommandTimeout:   "0",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// AutoDiscoverEnabled reports whether agent discovery should run.
func (c *Config) AutoDiscoverEnabled() bool {
	return c.AutoDiscover == nil || *c.AutoDiscover
}

// Load reads configuration from the first config file found and the
// environment. Environment variables always override file values.
func Load() (*Config, error) {
	return load("")
}

// LoadFile is Load with an explicit config file, which must exist.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	return load(path)
}

func load(explicit string) (*Config, error) {
	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Defaults()

	var (
		path string
		data []byte
		err  error
	)
	if explicit != "" {
		path = explicit
		data, err = os.ReadFile(explicit)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", explicit, err)
		}
	} else {
		path, data, err = findConfigFile()
	}
	if err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	// Environment variables override everything
	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	cfg.StateDir = expandHome(cfg.StateDir)
	cfg.LogDir = expandHome(cfg.LogDir)
	derivePaths(cfg)

	cfg.CommandTimeoutDuration, err = parseDurationOrDisable(cfg.CommandTimeout, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid command timeout %q: %w", cfg.CommandTimeout, err)
	}
	cfg.DiscoveryTimeoutDuration, err = parseDurationOrDisable(cfg.DiscoveryTimeout, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid discovery timeout %q: %w", cfg.DiscoveryTimeout, err)
	}
	cfg.HTTPTimeoutDuration, err = parseDurationOrDisable(cfg.HTTPTimeout, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid http timeout %q: %w", cfg.HTTPTimeout, err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".pane-relay.yaml"); err == nil {
		return ".pane-relay.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "pane-relay", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	setString(&cfg.TmuxServer, file.TmuxServer)
	setString(&cfg.CommandTimeout, file.CommandTimeout)
	setString(&cfg.StateDir, file.StateDir)
	setString(&cfg.QueueDir, file.QueueDir)
	setString(&cfg.PromptDir, file.PromptDir)
	setString(&cfg.MappingFile, file.MappingFile)
	setString(&cfg.JournalPath, file.JournalPath)
	setString(&cfg.LogDir, file.LogDir)
	setString(&cfg.AgentURL, file.AgentURL)
	setString(&cfg.Mode, file.Mode)
	if file.AutoDiscover != nil {
		v := *file.AutoDiscover
		cfg.AutoDiscover = &v
	}
	if len(file.DiscoveryPorts) > 0 {
		cfg.DiscoveryPorts = file.DiscoveryPorts
	}
	setString(&cfg.DiscoveryTimeout, file.DiscoveryTimeout)
	setString(&cfg.HTTPTimeout, file.HTTPTimeout)
	setString(&cfg.LogLevel, file.LogLevel)
	setString(&cfg.LogFormat, file.LogFormat)
	setString(&cfg.OTELEndpoint, file.OTELEndpoint)
	setString(&cfg.OTELHeaders, file.OTELHeaders)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	for key, dst := range map[string]*string{
		"TMUX_SERVER":       &cfg.TmuxServer,
		"COMMAND_TIMEOUT":   &cfg.CommandTimeout,
		"STATE_DIR":         &cfg.StateDir,
		"QUEUE_DIR":         &cfg.QueueDir,
		"PROMPT_DIR":        &cfg.PromptDir,
		"MAPPING_FILE":      &cfg.MappingFile,
		"JOURNAL_PATH":      &cfg.JournalPath,
		"LOG_DIR":           &cfg.LogDir,
		"AGENT_URL":         &cfg.AgentURL,
		"MODE":              &cfg.Mode,
		"DISCOVERY_TIMEOUT": &cfg.DiscoveryTimeout,
		"HTTP_TIMEOUT":      &cfg.HTTPTimeout,
		"LOG_LEVEL":         &cfg.LogLevel,
		"LOG_FORMAT":        &cfg.LogFormat,
	} {
		setString(dst, os.Getenv(envPrefix+key))
	}

	switch v := strings.ToLower(os.Getenv(envPrefix + "AUTO_DISCOVER")); v {
	case "":
	case "true", "1", "yes":
		t := true
		cfg.AutoDiscover = &t
	case "false", "0", "no":
		f := false
		cfg.AutoDiscover = &f
	default:
		return fmt.Errorf("invalid %sAUTO_DISCOVER %q", envPrefix, v)
	}

	if v := os.Getenv(envPrefix + "DISCOVERY_PORTS"); v != "" {
		ports, err := parsePorts(v)
		if err != nil {
			return fmt.Errorf("invalid %sDISCOVERY_PORTS: %w", envPrefix, err)
		}
		cfg.DiscoveryPorts = ports
	}

	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
	return nil
}

// parsePorts parses a comma-separated port list.
func parsePorts(s string) ([]int, error) {
	var ports []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("bad port %q", part)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

func derivePaths(cfg *Config) {
	if cfg.QueueDir == "" {
		cfg.QueueDir = filepath.Join(cfg.StateDir, "queue")
	}
	if cfg.PromptDir == "" {
		cfg.PromptDir = filepath.Join(cfg.StateDir, "prompts")
	}
	if cfg.MappingFile == "" {
		cfg.MappingFile = filepath.Join(cfg.StateDir, "sessions.json")
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = filepath.Join(cfg.StateDir, "journal.db")
	}
	cfg.QueueDir = expandHome(cfg.QueueDir)
	cfg.PromptDir = expandHome(cfg.PromptDir)
	cfg.MappingFile = expandHome(cfg.MappingFile)
	cfg.JournalPath = expandHome(cfg.JournalPath)
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
