package core

import (
	"os"
	"path/filepath"
)

type Paths struct {
	HomeDir           string
	DataDir           string
	LogFile           string
	HistoryFile       string
	ConfigFile        string
	LatestVersionFile string
	VersionMarkerFile string
}

var defaultPaths *Paths

// dataDirEnv overrides the data directory, mostly for tests and sandboxes.
const dataDirEnv = "MIA_HOME"

func ensureDefaultPaths() {
	if defaultPaths != nil {
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}

	dataDir := filepath.Join(homeDir, ".mia")
	if override := os.Getenv(dataDirEnv); override != "" {
		dataDir = override
	}

	defaultPaths = &Paths{
		HomeDir:           homeDir,
		DataDir:           dataDir,
		LogFile:           filepath.Join(dataDir, "mia.log"),
		HistoryFile:       filepath.Join(dataDir, "history.db"),
		ConfigFile:        filepath.Join(dataDir, "config.yaml"),
		LatestVersionFile: filepath.Join(dataDir, "latest_version.txt"),
		VersionMarkerFile: filepath.Join(dataDir, "version_marker"),
	}

	if err := os.MkdirAll(defaultPaths.DataDir, 0755); err != nil {
		panic(err)
	}
}

func HomeDir() string {
	ensureDefaultPaths()
	return defaultPaths.HomeDir
}

func DataDir() string {
	ensureDefaultPaths()
	return defaultPaths.DataDir
}

func LogFile() string {
	ensureDefaultPaths()
	return defaultPaths.LogFile
}

func HistoryFile() string {
	ensureDefaultPaths()
	return defaultPaths.HistoryFile
}

func ConfigFile() string {
	ensureDefaultPaths()
	return defaultPaths.ConfigFile
}

func LatestVersionFile() string {
	ensureDefaultPaths()
	return defaultPaths.LatestVersionFile
}

func VersionMarkerFile() string {
	ensureDefaultPaths()
	return defaultPaths.VersionMarkerFile
}

// ResetPaths clears the cached paths, forcing them to be reinitialized.
// This is primarily used for testing purposes.
func ResetPaths() {
	defaultPaths = nil
}
