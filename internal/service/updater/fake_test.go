package updater

import (
	"context"
	"fmt"
	"io"

	"github.com/oshokin/factorio-modupdate/internal/domain/mod"
	"github.com/oshokin/factorio-modupdate/internal/registry"
)

// fakeRegistry serves canned releases and records every call.
type fakeRegistry struct {
	releases    map[string][]mod.Release
	failures    map[string]error
	downloadErr error
	// beforeDownload runs at the start of every download.
	beforeDownload func(release mod.Release)

	lookups   []string
	downloads []mod.Release
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		releases: make(map[string][]mod.Release),
		failures: make(map[string]error),
	}
}

// withRelease appends a release to the mod's list.
func (f *fakeRegistry) withRelease(name, version string) *fakeRegistry {
	f.releases[name] = append(f.releases[name], mod.Release{
		Version:     version,
		DownloadURL: fmt.Sprintf("/download/%s/%s", name, version),
		FileName:    fmt.Sprintf("%s_%s.zip", name, version),
	})

	return f
}

func (f *fakeRegistry) LatestRelease(_ context.Context, name string) (*mod.Release, error) {
	f.lookups = append(f.lookups, name)

	if err, ok := f.failures[name]; ok {
		return nil, err
	}

	list := f.releases[name]
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", name, registry.ErrNoReleases)
	}

	latest := list[len(list)-1]

	return &latest, nil
}

func (f *fakeRegistry) Download(_ context.Context, release mod.Release, w io.Writer) (int64, error) {
	f.downloads = append(f.downloads, release)

	if f.beforeDownload != nil {
		f.beforeDownload(release)
	}

	if f.downloadErr != nil {
		_, _ = io.WriteString(w, "partial")
		return 0, f.downloadErr
	}

	n, err := io.WriteString(w, archiveBody(release))

	return int64(n), err
}

// archiveBody is the content the fake serves for a release.
func archiveBody(release mod.Release) string {
	return "archive " + release.FileName + " from " + release.DownloadURL
}
