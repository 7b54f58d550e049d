package appupdate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/atinylittleshell/mia/internal/core"
	"github.com/creativeprojects/go-selfupdate"
	"go.uber.org/zap"
)

var (
	// ErrDevBuild is returned when the running binary has no release version.
	ErrDevBuild = errors.New("running a development build")
	// ErrUpToDate is returned by Update when no newer release exists.
	ErrUpToDate = errors.New("already running the latest version")
	// ErrNoRelease is returned when no release could be found.
	ErrNoRelease = errors.New("no release found")
)

// HandleSelfUpdate checks for a newer release in the background. The returned
// channel yields the newer version if one exists and is then closed.
func HandleSelfUpdate(
	currentVersion string,
	logger *zap.Logger,
	updater Updater,
) chan string {
	resultChannel := make(chan string, 1)

	currentSemVer, err := semver.NewVersion(currentVersion)
	if err != nil {
		logger.Debug("running a dev build, skipping self-update check")
		close(resultChannel)
		return resultChannel
	}

	go fetchAndSaveLatestVersion(resultChannel, logger, updater, currentSemVer)

	return resultChannel
}

// ReadLatestVersion returns the newer version remembered by the last check, if any.
func ReadLatestVersion() string {
	data, err := os.ReadFile(core.LatestVersionFile())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// PendingUpdate returns the remembered latest version when it is newer than
// currentVersion.
func PendingUpdate(currentVersion string) string {
	current, err := semver.NewVersion(currentVersion)
	if err != nil {
		return ""
	}
	latest, err := semver.NewVersion(ReadLatestVersion())
	if err != nil || !latest.GreaterThan(current) {
		return ""
	}
	return latest.String()
}

func fetchAndSaveLatestVersion(resultChannel chan string, logger *zap.Logger, updater Updater, currentSemVer *semver.Version) {
	defer close(resultChannel)

	latest, found, err := updater.DetectLatest(context.Background(), Repository)
	if err != nil {
		logger.Warn("error occurred while getting latest version from remote", zap.Error(err))
		return
	}
	if !found {
		logger.Warn("latest version could not be found")
		return
	}

	latestSemVer, err := semver.NewVersion(latest.Version())
	if err != nil {
		logger.Error("failed to parse latest version", zap.Error(err))
		return
	}

	if latestSemVer.LessThanEqual(currentSemVer) {
		logger.Debug("already running the latest version")
		return
	}

	if err := os.WriteFile(core.LatestVersionFile(), []byte(latest.Version()), 0644); err != nil {
		logger.Error("failed to save latest version", zap.Error(err))
		return
	}

	logger.Info("new version available", zap.String("current", currentSemVer.String()), zap.String("latest", latest.Version()))
	resultChannel <- latest.Version()
}

// Update installs the latest release over exePath (the running binary when empty).
// Releases with a newer major version are not installed automatically.
func Update(ctx context.Context, currentVersion, exePath string, logger *zap.Logger, updater Updater) (string, error) {
	currentSemVer, err := semver.NewVersion(currentVersion)
	if err != nil {
		return "", ErrDevBuild
	}

	latest, found, err := updater.DetectLatest(ctx, Repository)
	if err != nil {
		return "", fmt.Errorf("detect latest release: %w", err)
	}
	if !found {
		return "", ErrNoRelease
	}

	latestSemVer, err := semver.NewVersion(latest.Version())
	if err != nil {
		return "", fmt.Errorf("parse latest version %q: %w", latest.Version(), err)
	}
	if latestSemVer.LessThanEqual(currentSemVer) {
		return currentSemVer.String(), ErrUpToDate
	}
	if latestSemVer.Major() != currentSemVer.Major() {
		return "", fmt.Errorf("version %s is a major upgrade; install it manually", latestSemVer)
	}

	if exePath == "" {
		exePath, err = selfupdate.ExecutablePath()
		if err != nil {
			return "", fmt.Errorf("locate executable: %w", err)
		}
	}

	logger.Info("updating", zap.String("from", currentSemVer.String()), zap.String("to", latestSemVer.String()))
	if err := updater.UpdateTo(ctx, latest.AssetURL(), latest.AssetName(), exePath); err != nil {
		return "", fmt.Errorf("install %s: %w", latestSemVer, err)
	}

	_ = os.Remove(core.LatestVersionFile())
	return latestSemVer.String(), nil
}
