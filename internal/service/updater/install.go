package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/factorio-modupdate/internal/domain/mod"
	"github.com/oshokin/factorio-modupdate/internal/logger"
)

const (
	// ArchiveFileMode is applied to installed archives.
	ArchiveFileMode os.FileMode = 0o644

	// partialPattern names in-progress downloads inside the mods directory.
	partialPattern = ".modupdate-*.part"
)

var errUnsafeFileName = errors.New("release file name must be a plain zip file name")

// Installer replaces mod archives in the mods directory.
type Installer struct {
	// dir is the mods directory.
	dir string
	// registry downloads release archives.
	registry Registry
}

// NewInstaller creates an installer writing into dir.
func NewInstaller(dir string, reg Registry) *Installer {
	return &Installer{
		dir:      filepath.Clean(dir),
		registry: reg,
	}
}

// Install applies every entry strictly in plan order and stops at the first failure.
func (i *Installer) Install(ctx context.Context, plan mod.Plan) error {
	for _, entry := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := i.installEntry(ctx, entry); err != nil {
			return fmt.Errorf("install %s %s: %w", entry.Name, entry.LatestVersion, err)
		}
	}

	return nil
}

// installEntry removes old archives of the mod, then downloads the entry's own release.
func (i *Installer) installEntry(ctx context.Context, entry mod.PlanEntry) error {
	fileName, err := archiveFileName(entry.Release.FileName)
	if err != nil {
		return err
	}

	if _, err = i.RemoveOldVersions(ctx, entry.Name); err != nil {
		return err
	}

	if err = os.MkdirAll(i.dir, 0o755); err != nil {
		return fmt.Errorf("create mods directory: %w", err)
	}

	partial, err := i.download(ctx, entry.Release)
	if err != nil {
		return err
	}

	defer func() {
		_ = os.Remove(partial)
	}()

	target := filepath.Join(i.dir, fileName)
	if err = applyArchive(partial, target); err != nil {
		return fmt.Errorf("replace %s: %w", target, err)
	}

	logger.InfoKV(ctx, "Updated mod", "mod", entry.Name, "version", entry.LatestVersion, "path", target)

	return nil
}

// RemoveOldVersions deletes every {name}_{version}.zip archive of the mod and returns the removed paths.
// Archives of other mods sharing the prefix, such as {name}_extra_{version}.zip, are kept.
func (i *Installer) RemoveOldVersions(ctx context.Context, name string) ([]string, error) {
	entries, err := os.ReadDir(i.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("list mods directory: %w", err)
	}

	var removed []string

	for _, entry := range entries {
		if entry.IsDir() || !isVersionOf(entry.Name(), name) {
			continue
		}

		path := filepath.Join(i.dir, entry.Name())
		if err = os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove old version: %w", err)
		}

		logger.InfoKV(ctx, "Removed old version", "mod", name, "path", path)

		removed = append(removed, path)
	}

	return removed, nil
}

// download streams the release into a hidden partial file inside the mods directory.
func (i *Installer) download(ctx context.Context, release mod.Release) (string, error) {
	file, err := os.CreateTemp(i.dir, partialPattern)
	if err != nil {
		return "", fmt.Errorf("create partial file: %w", err)
	}

	partial := file.Name()

	written, err := i.registry.Download(ctx, release, file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("download %s: %w", release.FileName, err)
	}

	logger.DebugKV(ctx, "Downloaded archive", "file", release.FileName, "bytes", written)

	return partial, nil
}

// applyArchive swaps the downloaded archive into place with go-update,
// which needs an existing target to rename aside.
// A placeholder created here is removed again when the swap fails.
func applyArchive(partial, target string) (err error) {
	if _, statErr := os.Stat(target); errors.Is(statErr, os.ErrNotExist) {
		if err = createPlaceholder(target); err != nil {
			return err
		}

		defer func() {
			if err != nil {
				_ = os.Remove(target)
			}
		}()
	}

	source, err := os.Open(partial)
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: ArchiveFileMode,
	}

	if err = goupdate.Apply(source, options); err != nil {
		return err
	}

	// go-update hides the previous file instead of deleting it on some platforms.
	oldFile := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old")
	if _, err = os.Stat(oldFile); err == nil {
		_ = os.Remove(oldFile)
	}

	return nil
}

// createPlaceholder creates an empty file at target.
func createPlaceholder(target string) error {
	placeholder, err := os.Create(target)
	if err != nil {
		return err
	}

	return placeholder.Close()
}

// archiveFileName rejects portal file names that would escape the mods directory.
func archiveFileName(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".zip") {
		return "", fmt.Errorf("%q: %w", name, errUnsafeFileName)
	}

	return name, nil
}

// isVersionOf reports whether fileName is {name}_{version}.zip for a version without underscores.
func isVersionOf(fileName, name string) bool {
	rest, found := strings.CutPrefix(fileName, name+"_")
	if !found {
		return false
	}

	version, found := strings.CutSuffix(rest, ".zip")

	return found && !strings.Contains(version, "_")
}
