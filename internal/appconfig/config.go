package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/tabshell/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	DataDir       string           `mapstructure:"data_dir" yaml:"data_dir"`
	Browser       BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Window        WindowConfig     `mapstructure:"window" yaml:"window"`
	Navigation    NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
	History       HistoryConfig    `mapstructure:"history" yaml:"history"`
	HTTP          HTTPConfig       `mapstructure:"http" yaml:"http"`
	RPC           RPCConfig        `mapstructure:"rpc" yaml:"rpc"`
	Logging       LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// BrowserConfig controls the Chromium process backing the surfaces.
type BrowserConfig struct {
	ExecPath    string   `mapstructure:"exec_path" yaml:"exec_path"`
	RemoteURL   string   `mapstructure:"remote_url" yaml:"remote_url"`
	Headless    bool     `mapstructure:"headless" yaml:"headless"`
	NoSandbox   bool     `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	UserDataDir string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Flags       []string `mapstructure:"flags" yaml:"flags"`
}

// WindowConfig describes the host window. Surface bounds are relative to its origin.
type WindowConfig struct {
	Left         int `mapstructure:"left" yaml:"left"`
	Top          int `mapstructure:"top" yaml:"top"`
	Width        int `mapstructure:"width" yaml:"width"`
	Height       int `mapstructure:"height" yaml:"height"`
	ChromeHeight int `mapstructure:"chrome_height" yaml:"chrome_height"`
}

// NavigationConfig controls the start page and address bar searches.
type NavigationConfig struct {
	StartPage string `mapstructure:"start_page" yaml:"start_page"`
	SearchURL string `mapstructure:"search_url" yaml:"search_url"`
}

// HistoryConfig bounds the browsing history.
type HistoryConfig struct {
	MaxEntries   int `mapstructure:"max_entries" yaml:"max_entries"`
	DisplayLimit int `mapstructure:"display_limit" yaml:"display_limit"`
}

// HTTPConfig configures the HTTP command server.
type HTTPConfig struct {
	Addr  string `mapstructure:"addr" yaml:"addr"`
	Token string `mapstructure:"token" yaml:"token"`
}

// RPCConfig configures the gRPC unix socket.
type RPCConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path"`
}

// LoggingConfig controls audit logging behavior.
type LoggingConfig struct {
	DisableAuditTrails bool `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	root := filepath.Join(home, ".tabshell")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		DataDir:       filepath.Join(root, "data"),
		Browser: BrowserConfig{
			UserDataDir: filepath.Join(root, "profile"),
			Flags:       []string{},
		},
		Window: WindowConfig{
			Width:        schema.DefaultWindowWidth,
			Height:       schema.DefaultWindowHeight,
			ChromeHeight: schema.DefaultChromeHeight,
		},
		Navigation: NavigationConfig{
			StartPage: schema.DefaultStartPage,
			SearchURL: schema.DefaultSearchURL,
		},
		History: HistoryConfig{
			MaxEntries:   schema.DefaultHistoryMaxEntries,
			DisplayLimit: schema.DefaultHistoryDisplayLimit,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:27490",
		},
		RPC: RPCConfig{
			Enabled:    true,
			SocketPath: filepath.Join(root, "run", "tabshell.sock"),
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabshell", "config.yaml"), nil
}

// ShellConfig projects the config onto the core service settings.
func (c Config) ShellConfig() schema.ShellConfig {
	return schema.ShellConfig{
		DataDir:             c.DataDir,
		StartPage:           c.Navigation.StartPage,
		SearchURL:           c.Navigation.SearchURL,
		WindowWidth:         c.Window.Width,
		WindowHeight:        c.Window.Height,
		ChromeHeight:        c.Window.ChromeHeight,
		HistoryMaxEntries:   c.History.MaxEntries,
		HistoryDisplayLimit: c.History.DisplayLimit,
	}
}
