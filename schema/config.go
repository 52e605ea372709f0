package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ShellConfig defines defaults and limits for the browsing shell.
type ShellConfig struct {
	DataDir   string
	StartPage string
	// SearchURL is a url template with a single %s for the escaped query.
	SearchURL    string
	WindowWidth  int
	WindowHeight int
	// ChromeHeight is the height reserved for the UI toolbar above the surfaces.
	ChromeHeight        int
	HistoryMaxEntries   int
	HistoryDisplayLimit int
}

const (
	// DefaultStartPage is loaded into every new tab.
	DefaultStartPage = "https://www.google.com"
	// DefaultSearchURL receives non-url address bar input.
	DefaultSearchURL = "https://www.google.com/search?q=%s"
	// DefaultHistoryMaxEntries caps the stored history list.
	DefaultHistoryMaxEntries = 1000
	// DefaultHistoryDisplayLimit caps history returned to the UI.
	DefaultHistoryDisplayLimit = 100
	// DefaultWindowWidth is the host window width.
	DefaultWindowWidth = 1280
	// DefaultWindowHeight is the host window height.
	DefaultWindowHeight = 800
	// DefaultChromeHeight is the toolbar height above the surfaces.
	DefaultChromeHeight = 88
)

// NormalizeShellConfig applies defaults and validates the config.
func NormalizeShellConfig(cfg ShellConfig) (ShellConfig, error) {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ShellConfig{}, err
		}
		cfg.DataDir = filepath.Join(home, ".tabshell", "data")
	}
	if strings.TrimSpace(cfg.StartPage) == "" {
		cfg.StartPage = DefaultStartPage
	}
	if strings.TrimSpace(cfg.SearchURL) == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if strings.Count(cfg.SearchURL, "%s") != 1 {
		return ShellConfig{}, errors.New("search url must contain exactly one %s")
	}
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = DefaultWindowWidth
	}
	if cfg.WindowHeight <= 0 {
		cfg.WindowHeight = DefaultWindowHeight
	}
	if cfg.ChromeHeight < 0 {
		cfg.ChromeHeight = 0
	}
	if cfg.ChromeHeight == 0 {
		cfg.ChromeHeight = DefaultChromeHeight
	}
	if cfg.ChromeHeight >= cfg.WindowHeight {
		return ShellConfig{}, errors.New("chrome height must be smaller than window height")
	}
	if cfg.HistoryMaxEntries <= 0 {
		cfg.HistoryMaxEntries = DefaultHistoryMaxEntries
	}
	if cfg.HistoryDisplayLimit <= 0 {
		cfg.HistoryDisplayLimit = DefaultHistoryDisplayLimit
	}
	return cfg, nil
}
