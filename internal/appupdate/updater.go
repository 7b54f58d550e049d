package appupdate

import (
	"context"

	"github.com/creativeprojects/go-selfupdate"
)

// Repository is the GitHub repository mia releases are published to.
const Repository = "atinylittleshell/mia"

// Release is the part of a published release the updater needs.
type Release interface {
	Version() string
	AssetURL() string
	AssetName() string
}

// Updater finds and installs releases.
type Updater interface {
	DetectLatest(ctx context.Context, repo string) (Release, bool, error)
	UpdateTo(ctx context.Context, assetURL, assetName, exePath string) error
}

// DefaultUpdater talks to GitHub releases through go-selfupdate.
type DefaultUpdater struct{}

func (DefaultUpdater) DetectLatest(ctx context.Context, repo string) (Release, bool, error) {
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repo))
	if err != nil || !found {
		return nil, found, err
	}
	return githubRelease{release: latest}, true, nil
}

func (DefaultUpdater) UpdateTo(ctx context.Context, assetURL, assetName, exePath string) error {
	return selfupdate.UpdateTo(ctx, assetURL, assetName, exePath)
}

type githubRelease struct {
	release *selfupdate.Release
}

func (r githubRelease) Version() string   { return r.release.Version() }
func (r githubRelease) AssetURL() string  { return r.release.AssetURL }
func (r githubRelease) AssetName() string { return r.release.AssetName }
