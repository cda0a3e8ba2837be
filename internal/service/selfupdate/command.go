// Package selfupdate replaces the running launcher binary with the newest
// published launcher release. The downloaded artifact goes through the same
// size and checksum verification as game artifacts before it is swapped in.
package selfupdate

import (
	"bytes"
	"context"
	"crypto"
	_ "crypto/sha256" // registers crypto.SHA256 for go-update
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	goupdate "github.com/doitdistributed/go-update"

	"github.com/mastercomfig/tc2-launcher/internal/config"
	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
	"github.com/mastercomfig/tc2-launcher/internal/logger"
	"github.com/mastercomfig/tc2-launcher/internal/service/fetcher"
	"github.com/mastercomfig/tc2-launcher/internal/service/resolver"
	"github.com/mastercomfig/tc2-launcher/internal/version"
)

// launcherBaseName prefixes downloaded launcher artifacts.
const launcherBaseName = "tc2-launcher"

// targetMode is the permission set applied to the replaced binary.
const targetMode os.FileMode = 0o755

// Options controls a self-update run.
type Options struct {
	// ConfigPath locates the settings file, empty for the default location.
	ConfigPath string
	// Channel overrides the release channel for launcher updates.
	Channel string
	// Progress receives download notifications, may be nil.
	Progress fetcher.ProgressFunc
}

// Run checks the launcher repository for a newer release and applies it over
// the running executable. Returns nil when the launcher is already current.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "selfupdate")

	if opts == nil {
		opts = &Options{}
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	r := resolver.New(settings.LauncherRepo,
		resolver.WithChannel(opts.Channel),
		resolver.WithEndpoint(settings.APIEndpoint),
		resolver.WithTimeout(settings.Timeout))

	manifest, err := r.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("check for launcher update: %w", err)
	}

	if current, verr := semver.NewVersion(version.Short()); verr == nil {
		if !manifest.Version.GreaterThan(current) {
			logger.InfoKV(ctx, "Launcher is up to date", "version", version.Short())
			return nil
		}
	} else {
		logger.Warnf(ctx, "Running version %q is unreadable, updating anyway: %v", version.Short(), verr)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate running executable: %w", err)
	}

	logger.InfoKV(ctx, "Updating launcher",
		"current", version.Short(), "available", manifest.Version.String())

	tmpDir, err := os.MkdirTemp("", launcherBaseName+"-update-*")
	if err != nil {
		return &release.DiskError{Op: "create update directory", Err: err}
	}

	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	f := fetcher.New(tmpDir,
		fetcher.WithBaseName(launcherBaseName),
		fetcher.WithProgress(opts.Progress))

	downloaded, err := f.Fetch(ctx, manifest)
	if err != nil {
		return fmt.Errorf("download launcher update: %w", err)
	}

	if err := apply(ctx, downloaded.Path, execPath, manifest.Checksum); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Launcher updated, restart to use the new version",
		"version", manifest.Version.String())

	return nil
}

// apply swaps the verified artifact in over the target binary using go-update,
// which re-verifies the checksum against the bytes it writes.
func apply(ctx context.Context, artifactPath, targetPath string, checksum release.Digest) error {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return &release.DiskError{Op: "read downloaded launcher", Err: err}
	}

	options := goupdate.Options{
		TargetPath: targetPath,
		TargetMode: targetMode,
		Checksum:   checksum.Sum,
		Hash:       crypto.SHA256,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply launcher update: %w", err)
	}

	// go-update leaves the previous binary next to the target.
	oldPath := targetPath + ".old"
	if _, err := os.Stat(oldPath); err == nil {
		if rerr := os.Remove(oldPath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			logger.Warnf(ctx, "Unable to remove previous launcher binary: %v", rerr)
		}
	}

	return nil
}
