package updater

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/oshokin/factorio-modupdate/internal/domain/mod"
	"github.com/oshokin/factorio-modupdate/internal/logger"
	"github.com/oshokin/factorio-modupdate/internal/registry"
)

// Registry is the part of the mod portal the updater depends on.
type Registry interface {
	// LatestRelease returns the newest release of the mod.
	LatestRelease(ctx context.Context, name string) (*mod.Release, error)
	// Download writes the release archive into w.
	Download(ctx context.Context, release mod.Release, w io.Writer) (int64, error)
}

// BuildPlan asks the registry for every installed mod, in order, and keeps the
// mods whose installed version differs from the latest release.
// Lookups that fail with a status error or list no releases are reported and skipped;
// any other lookup error aborts planning.
func BuildPlan(ctx context.Context, reg Registry, installed []mod.Installed) (mod.Plan, error) {
	plan := make(mod.Plan, 0, len(installed))

	for _, m := range installed {
		release, err := reg.LatestRelease(ctx, m.Name)

		var statusErr *registry.StatusError

		switch {
		case errors.As(err, &statusErr):
			logger.WarnKV(ctx, "Failed to fetch data for mod", "mod", m.Name, "status", statusErr.StatusCode)
			continue
		case errors.Is(err, registry.ErrNoReleases):
			logger.WarnKV(ctx, "No releases found for mod", "mod", m.Name)
			continue
		case err != nil:
			return nil, fmt.Errorf("fetch releases of %s: %w", m.Name, err)
		}

		if !mod.NeedsUpdate(m.Version, release.Version) {
			logger.InfoKV(ctx, "Mod is already up to date", "mod", m.Name, "version", m.Version)
			continue
		}

		plan = append(plan, mod.NewPlanEntry(m, *release))
	}

	return plan, nil
}
