// Package launcher orchestrates the update-and-launch flow: resolve the
// newest release, download and install it, record it, then start the game and
// supervise it until exit. All front-end communication goes through the
// one-way event sink, so the flow runs headless in tests.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mastercomfig/tc2-launcher/internal/config"
	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
	"github.com/mastercomfig/tc2-launcher/internal/logger"
	"github.com/mastercomfig/tc2-launcher/internal/repository/state"
	"github.com/mastercomfig/tc2-launcher/internal/service/fetcher"
	"github.com/mastercomfig/tc2-launcher/internal/service/resolver"
	"github.com/mastercomfig/tc2-launcher/internal/service/supervisor"
)

// errNothingInstalled is returned when a launch is requested before any
// release has been installed.
var errNothingInstalled = errors.New("no release installed")

// Options controls a single launcher run.
type Options struct {
	// ConfigPath locates the settings file, empty for the default location.
	ConfigPath string
	// Channel overrides the configured release channel when non-empty.
	Channel string
	// CheckOnly stops after reporting update availability.
	CheckOnly bool
	// InstallOnly installs an available update but does not launch.
	InstallOnly bool
	// SkipUpdate launches the installed release without a remote check.
	SkipUpdate bool
	// StrictUpdate fails the run when the update check fails, instead of
	// degrading to the installed release.
	StrictUpdate bool
	// LaunchArgs are appended to the configured game arguments.
	LaunchArgs []string
	// Events receives progress and status notifications, may be nil.
	Events Sink
}

// Run executes the launcher flow described by the options.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "launcher")

	r, err := newRunner(opts)
	if err != nil {
		return err
	}

	return r.run(ctx)
}

// Installed returns the currently recorded release, nil when none exists.
func Installed(ctx context.Context, configPath string) (*release.InstalledRelease, error) {
	_, dataDir, err := loadEnvironment(configPath)
	if err != nil {
		return nil, err
	}

	rel, err := state.NewFileRepository(filepath.Join(dataDir, config.DefaultStateFilename)).Load(ctx)
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}

	return rel, err
}

// Uninstall removes the installed game and recorded state. Settings are kept
// unless keepSettings is false.
func Uninstall(ctx context.Context, configPath string, keepSettings bool) error {
	settings, dataDir, err := loadEnvironment(configPath)
	if err != nil {
		return err
	}

	installDir := settings.InstallDir(dataDir)
	if err := os.RemoveAll(installDir); err != nil {
		return &release.DiskError{Op: "remove game directory", Err: err}
	}

	statePath := filepath.Join(dataDir, config.DefaultStateFilename)
	if err := os.Remove(statePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &release.DiskError{Op: "remove state file", Err: err}
	}

	logger.InfoKV(ctx, "Game uninstalled", "install_dir", installDir)

	if keepSettings {
		return nil
	}

	settingsPath := configPath
	if settingsPath == "" {
		settingsPath = filepath.Join(dataDir, config.DefaultSettingsFilename)
	}

	if err := os.Remove(settingsPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &release.DiskError{Op: "remove settings file", Err: err}
	}

	return nil
}

// loadEnvironment resolves settings and the per-user data directory.
func loadEnvironment(configPath string) (*config.Settings, string, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, "", err
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return nil, "", err
	}

	return settings, dataDir, nil
}

// runner wires the components for one launcher run.
type runner struct {
	opts       *Options
	settings   *config.Settings
	states     state.Repository
	resolver   *resolver.Resolver
	fetcher    *fetcher.Fetcher
	supervisor *supervisor.Supervisor
}

// newRunner loads settings and assembles the component graph.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		opts = &Options{}
	}

	settings, dataDir, err := loadEnvironment(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	installDir := settings.InstallDir(dataDir)
	if err := os.MkdirAll(installDir, config.DefaultDirPermissions); err != nil {
		return nil, &release.DiskError{Op: "create game directory", Err: err}
	}

	channel := settings.Channel
	if opts.Channel != "" {
		channel = opts.Channel
	}

	r := &runner{
		opts:     opts,
		settings: settings,
		states:   state.NewFileRepository(filepath.Join(dataDir, config.DefaultStateFilename)),
		resolver: resolver.New(settings.GameRepo,
			resolver.WithChannel(channel),
			resolver.WithEndpoint(settings.APIEndpoint),
			resolver.WithTimeout(settings.Timeout)),
		supervisor: supervisor.New(supervisor.WithGracePeriod(settings.GracePeriod)),
	}

	r.fetcher = fetcher.New(installDir, fetcher.WithProgress(func(transferred, total int64) {
		r.emit(ProgressEvent{Transferred: transferred, Total: total})
	}))

	return r, nil
}

// run drives the flow: update check, install, launch, wait.
func (r *runner) run(ctx context.Context) error {
	installed := r.loadInstalled(ctx)

	if !r.opts.SkipUpdate {
		current, err := r.ensureCurrent(ctx, installed)
		if err != nil {
			return err
		}

		installed = current

		if r.opts.CheckOnly {
			return nil
		}
	}

	if r.opts.InstallOnly {
		return nil
	}

	return r.launch(ctx, installed)
}

// loadInstalled reads the recorded release. An unreadable record is treated
// as a fresh install so the next successful update repairs it.
func (r *runner) loadInstalled(ctx context.Context) *release.InstalledRelease {
	installed, err := r.states.Load(ctx)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			logger.Warnf(ctx, "Installed release record is unreadable, treating as fresh install: %v", err)
		}

		return nil
	}

	return installed
}

// ensureCurrent resolves the remote release and installs it when it should
// replace the local one. When the check fails and a release is already
// installed, the flow degrades to launching that release unless StrictUpdate
// is set.
func (r *runner) ensureCurrent(ctx context.Context, installed *release.InstalledRelease) (*release.InstalledRelease, error) {
	manifest, err := r.resolver.Resolve(ctx)
	if err != nil {
		if installed != nil && !r.opts.StrictUpdate {
			logger.Warnf(ctx, "Update check failed, continuing with installed release %s: %v",
				installed.Version, err)

			return installed, nil
		}

		return nil, fmt.Errorf("check for update: %w", err)
	}

	if !r.resolver.UpdateAvailable(ctx, manifest, installed) {
		r.emit(UpToDateEvent{Version: installed.Version})

		return installed, nil
	}

	var current string
	if installed != nil {
		current = installed.Version
	}

	r.emit(UpdateAvailableEvent{Current: current, Available: manifest.Version.String()})

	if r.opts.CheckOnly {
		return installed, nil
	}

	fetched, err := r.fetcher.Fetch(ctx, manifest)
	if err != nil {
		return nil, fmt.Errorf("install update: %w", err)
	}

	// The new release becomes current only once it is recorded; the prior
	// binary stays on disk until then.
	if err := r.states.Save(ctx, fetched); err != nil {
		return nil, fmt.Errorf("record installed release: %w", err)
	}

	r.fetcher.Retire(ctx, installed, fetched)

	r.emit(InstalledEvent{Version: fetched.Version, Path: fetched.Path})

	return fetched, nil
}

// launch starts the installed release and waits for it to finish.
func (r *runner) launch(ctx context.Context, installed *release.InstalledRelease) error {
	if installed == nil {
		return errNothingInstalled
	}

	if pid, running, err := supervisor.FindRunning(filepath.Base(installed.Path)); err != nil {
		logger.Warnf(ctx, "Unable to check for a running game instance: %v", err)
	} else if running {
		return fmt.Errorf("game is already running (pid %d)", pid)
	}

	args := append(append([]string{}, r.settings.LaunchArgs...), r.opts.LaunchArgs...)

	session, err := r.supervisor.Launch(ctx, installed.Path, args...)
	if err != nil {
		return fmt.Errorf("launch %s: %w", installed.Version, err)
	}

	r.emit(LaunchedEvent{SessionID: session.ID, PID: session.PID})

	status, err := r.supervisor.Wait(ctx, session)

	r.emit(FinishedEvent{Status: status})

	return err
}

// emit forwards an event when a sink is registered.
func (r *runner) emit(ev Event) {
	if r.opts.Events != nil {
		r.opts.Events(ev)
	}
}
