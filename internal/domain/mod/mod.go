package mod

import "fmt"

// UnknownVersion is reported for archives whose info.json has no version.
const UnknownVersion = "Unknown"

// Installed describes a mod archive found in the mods directory.
type Installed struct {
	// Name is the mod name declared in info.json, not derived from the filename.
	Name string
	// Version is the declared version or UnknownVersion.
	Version string
	// ArchivePath is the archive the metadata was read from.
	ArchivePath string
}

// Release is one entry of a mod's release list on the portal.
type Release struct {
	// Version is the release version string.
	Version string `json:"version"`
	// DownloadURL is the portal-relative download path, e.g. /download/foo/5a5f.
	DownloadURL string `json:"download_url"`
	// FileName is the archive name to store the download under.
	FileName string `json:"file_name"`
}

// PlanEntry is a single pending update.
type PlanEntry struct {
	// Name of the mod.
	Name string
	// CurrentVersion is the installed version.
	CurrentVersion string
	// LatestVersion is the version of Release.
	LatestVersion string
	// Release is the record this entry installs.
	Release Release
}

// NewPlanEntry builds an entry for installing release over the installed mod.
func NewPlanEntry(installed Installed, release Release) PlanEntry {
	return PlanEntry{
		Name:           installed.Name,
		CurrentVersion: installed.Version,
		LatestVersion:  release.Version,
		Release:        release,
	}
}

// String renders the entry as "name: old --> new".
func (e PlanEntry) String() string {
	return fmt.Sprintf("%s: %s --> %s", e.Name, e.CurrentVersion, e.LatestVersion)
}

// Plan is the ordered list of updates confirmed or rejected as a whole.
type Plan []PlanEntry

// Empty reports whether there is nothing to update.
func (p Plan) Empty() bool {
	return len(p) == 0
}

// NeedsUpdate reports whether the installed version differs from the latest one.
// Versions are compared as plain strings, so "1.0" and "1.0.0" are different.
func NeedsUpdate(current, latest string) bool {
	return current != latest
}
