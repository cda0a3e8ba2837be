package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds user-tunable launcher parameters persisted in YAML.
type Settings struct {
	// GameRepo is the "owner/name" GitHub repository publishing game releases.
	GameRepo string `yaml:"game_repo"`
	// LauncherRepo is the "owner/name" repository publishing launcher self-updates.
	LauncherRepo string `yaml:"launcher_repo"`
	// Channel selects the release stream: empty for latest stable,
	// "prerelease" for the newest release including prereleases,
	// or a concrete tag to pin a version.
	Channel string `yaml:"channel,omitempty"`
	// GameDir overrides the directory where game binaries are installed.
	// Empty means "<data-dir>/game".
	GameDir string `yaml:"game_dir,omitempty"`
	// LaunchArgs are extra arguments passed to the game on launch.
	LaunchArgs []string `yaml:"launch_args,omitempty"`
	// Timeout is the duration for individual network operations.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// GracePeriod is how long a cancelled game process is given to exit
	// after the termination signal before it is killed.
	GracePeriod time.Duration `yaml:"grace_period,omitempty"`
	// APIEndpoint overrides the release API base URL. Used by tests.
	APIEndpoint string `yaml:"api_endpoint,omitempty"`
}

const (
	// DefaultSettingsFilename is the default filename for launcher settings.
	DefaultSettingsFilename = "settings.yaml"

	// DefaultStateFilename is the default filename for installed-release state JSON.
	DefaultStateFilename = "state.json"

	// DefaultGameRepo publishes the game artifacts.
	DefaultGameRepo = "mastercomfig/tc2"

	// DefaultLauncherRepo publishes launcher self-updates.
	DefaultLauncherRepo = "mastercomfig/tc2-launcher"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 30 * time.Second

	// DefaultGracePeriod is the default termination grace period.
	DefaultGracePeriod = 10 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the default permission for created directories.
	DefaultDirPermissions = 0o755

	// dataDirName is the per-user directory holding all launcher files.
	dataDirName = "TC2Launcher"
)

var (
	// errSettingsNotSet is returned when a nil Settings value is provided.
	errSettingsNotSet = errors.New("settings are not set")
	// errBadRepo is returned when a repository slug is not "owner/name".
	errBadRepo = errors.New("repository must be in owner/name form")
)

// Default returns Settings populated with default values.
func Default() *Settings {
	return &Settings{
		GameRepo:     DefaultGameRepo,
		LauncherRepo: DefaultLauncherRepo,
		Timeout:      DefaultTimeout,
		GracePeriod:  DefaultGracePeriod,
	}
}

// Load reads settings from the provided path and validates essential fields.
// A missing file yields defaults so a first run needs no setup.
func Load(path string) (*Settings, error) {
	if path == "" {
		dir, err := DataDir()
		if err != nil {
			return nil, err
		}

		path = filepath.Join(dir, DefaultSettingsFilename)
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(contents, &s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&s); err != nil {
		return nil, err
	}

	return &s, nil
}

// Save writes Settings to the provided path.
func Save(path string, s *Settings) error {
	if s == nil {
		return errSettingsNotSet
	}

	if err := Validate(s); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(s *Settings) error {
	if s == nil {
		return errSettingsNotSet
	}

	if s.GameRepo == "" {
		s.GameRepo = DefaultGameRepo
	}

	if s.LauncherRepo == "" {
		s.LauncherRepo = DefaultLauncherRepo
	}

	for _, repo := range []string{s.GameRepo, s.LauncherRepo} {
		if err := validateRepo(repo); err != nil {
			return err
		}
	}

	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}

	if s.GracePeriod <= 0 {
		s.GracePeriod = DefaultGracePeriod
	}

	if s.APIEndpoint == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(s.APIEndpoint); err != nil {
		return fmt.Errorf("invalid API endpoint: %w", err)
	}

	return nil
}

// validateRepo ensures a repository slug has exactly an owner and a name part.
func validateRepo(repo string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%q: %w", repo, errBadRepo)
	}

	return nil
}

// InstallDir returns the directory game binaries are installed into,
// honoring the GameDir override.
func (s *Settings) InstallDir(dataDir string) string {
	if s.GameDir != "" {
		return s.GameDir
	}

	return filepath.Join(dataDir, "game")
}

// DataDir resolves the per-user launcher directory and creates it on demand.
// The platform base directory can be overridden through the conventional
// environment variable, but only absolute override values are honored.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	var envName, fallback string

	switch runtime.GOOS {
	case "windows":
		envName = "LOCALAPPDATA"
		fallback = filepath.Join(home, "AppData", "Local")
	case "darwin":
		envName = "XDG_DATA_HOME"
		fallback = filepath.Join(home, "Library", "Application Support")
	default:
		envName = "XDG_DATA_HOME"
		fallback = filepath.Join(home, ".local", "share")
	}

	base := os.Getenv(envName)
	if base == "" || !filepath.IsAbs(base) {
		base = fallback
	}

	dir := filepath.Join(base, dataDirName)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}

	return dir, nil
}
