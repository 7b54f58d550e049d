package appupdate

import (
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/atinylittleshell/mia/internal/core"
)

// GetLastUsedVersion reads the last used version from the version marker file.
// Returns empty string on a fresh install.
func GetLastUsedVersion() string {
	data, err := os.ReadFile(core.VersionMarkerFile())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// UpdateVersionMarker writes the current version to the version marker file.
func UpdateVersionMarker(version string) error {
	return os.WriteFile(core.VersionMarkerFile(), []byte(version), 0644)
}

// ShouldShowWhatsNew reports whether currentVersion is newer than the version
// that last ran. Fresh installs and dev builds never show the notice.
func ShouldShowWhatsNew(currentVersion string) bool {
	current, err := semver.NewVersion(currentVersion)
	if err != nil {
		return false
	}
	last, err := semver.NewVersion(GetLastUsedVersion())
	if err != nil {
		return false
	}
	return current.GreaterThan(last)
}

// WhatsNewMessage is shown once after an upgrade.
func WhatsNewMessage(version string) string {
	return "mia was updated to " + version + ".\n" +
		"Release notes: https://github.com/" + Repository + "/releases/tag/v" + version
}
