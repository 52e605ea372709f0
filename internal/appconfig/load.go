package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/tabshell/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TABSHELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("browser.exec_path", cfg.Browser.ExecPath)
	v.SetDefault("browser.remote_url", cfg.Browser.RemoteURL)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.no_sandbox", cfg.Browser.NoSandbox)
	v.SetDefault("browser.user_data_dir", cfg.Browser.UserDataDir)
	v.SetDefault("browser.flags", cfg.Browser.Flags)
	v.SetDefault("window.left", cfg.Window.Left)
	v.SetDefault("window.top", cfg.Window.Top)
	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)
	v.SetDefault("window.chrome_height", cfg.Window.ChromeHeight)
	v.SetDefault("navigation.start_page", cfg.Navigation.StartPage)
	v.SetDefault("navigation.search_url", cfg.Navigation.SearchURL)
	v.SetDefault("history.max_entries", cfg.History.MaxEntries)
	v.SetDefault("history.display_limit", cfg.History.DisplayLimit)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.token", cfg.HTTP.Token)
	v.SetDefault("rpc.enabled", cfg.RPC.Enabled)
	v.SetDefault("rpc.socket_path", cfg.RPC.SocketPath)
	v.SetDefault("logging.disable_audit_trails", cfg.Logging.DisableAuditTrails)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if remote := strings.TrimSpace(cfg.Browser.RemoteURL); remote != "" {
		parsed, err := url.Parse(remote)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "ws" && parsed.Scheme != "wss" && parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("browser.remote_url must be a ws(s):// or http(s):// DevTools endpoint")
		}
	}
	if strings.Count(cfg.Navigation.SearchURL, "%s") != 1 {
		return fmt.Errorf("navigation.search_url must contain exactly one %%s")
	}
	if cfg.Window.ChromeHeight >= cfg.Window.Height {
		return fmt.Errorf("window.chrome_height must be smaller than window.height")
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" && (!cfg.RPC.Enabled || strings.TrimSpace(cfg.RPC.SocketPath) == "") {
		return fmt.Errorf("at least one of http.addr or rpc.socket_path must be configured")
	}
	if _, err := schema.NormalizeShellConfig(cfg.ShellConfig()); err != nil {
		return err
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.DataDir = expandEnv(cfg.DataDir)
	cfg.Browser.ExecPath = expandEnv(cfg.Browser.ExecPath)
	cfg.Browser.UserDataDir = expandEnv(cfg.Browser.UserDataDir)
	cfg.RPC.SocketPath = expandEnv(cfg.RPC.SocketPath)
	cfg.HTTP.Token = expandEnv(cfg.HTTP.Token)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
