package updater

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oshokin/factorio-modupdate/internal/config"
	"github.com/oshokin/factorio-modupdate/internal/inventory"
	"github.com/oshokin/factorio-modupdate/internal/logger"
	"github.com/oshokin/factorio-modupdate/internal/registry"
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the updater YAML file.
	ConfigPath string
	// ModsDir overrides the mods directory from the config when set.
	ModsDir string
	// ServerSettingsFile overrides the server settings path from the config when set.
	ServerSettingsFile string
	// AssumeYes installs the plan without asking.
	AssumeYes bool
	// In is where the confirmation is read from. Defaults to os.Stdin.
	In io.Reader
	// Out receives the plan and the prompt. Defaults to os.Stdout.
	Out io.Writer
}

// runner holds everything a single update run needs.
type runner struct {
	cfg       *config.Config     // Resolved configuration.
	scanner   *inventory.Scanner // Lists installed mods.
	registry  Registry           // Mod portal.
	installer *Installer         // Replaces archives.
	assumeYes bool               // Skip the confirmation prompt.
	in        io.Reader          // Operator input.
	out       io.Writer          // Operator output.
}

// Run executes one update pass and is the public entry point for the CLI.
// Missing credentials are reported and end the run without an error.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "factorio-modupdate")

	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	settings, err := config.LoadServerSettings(cfg.ServerSettingsFile)
	if err != nil {
		return err
	}

	if !settings.HasCredentials() {
		logger.ErrorKV(ctx, "Username or token not found in server settings", "path", cfg.ServerSettingsFile)
		return nil
	}

	release, err := acquireMarker(ctx, cfg.MarkerFile)
	if err != nil {
		return err
	}

	defer release()

	client, err := registry.New(
		settings.Token,
		registry.WithBaseURL(cfg.PortalURL),
		registry.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return err
	}

	if err = newRunner(cfg, client, opts).Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Update run failed", "error", err)
		return err
	}

	return nil
}

// resolveConfig loads the YAML config and applies command line overrides.
func resolveConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if dir := strings.TrimSpace(opts.ModsDir); dir != "" {
		cfg.ModsDir = dir
	}

	if path := strings.TrimSpace(opts.ServerSettingsFile); path != "" {
		cfg.ServerSettingsFile = path
	}

	return cfg, nil
}

// newRunner wires the pipeline around the provided registry.
func newRunner(cfg *config.Config, reg Registry, opts *Options) *runner {
	u := &runner{
		cfg:       cfg,
		scanner:   inventory.NewScanner(cfg.ModsDir),
		registry:  reg,
		installer: NewInstaller(cfg.ModsDir, reg),
		assumeYes: opts.AssumeYes,
		in:        opts.In,
		out:       opts.Out,
	}

	if u.in == nil {
		u.in = os.Stdin
	}

	if u.out == nil {
		u.out = os.Stdout
	}

	return u
}

// Run scans, plans, confirms and installs:
// 1) Inventory the mods directory.
// 2) Look up the latest release of every mod.
// 3) Ask the operator to confirm the whole plan.
// 4) Replace archives in plan order.
func (u *runner) Run(ctx context.Context) error {
	installed, err := u.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan mods: %w", err)
	}

	logger.DebugKV(ctx, "Checking mods against the portal", "count", len(installed))

	plan, err := BuildPlan(ctx, u.registry, installed)
	if err != nil {
		return err
	}

	if plan.Empty() {
		logger.Info(ctx, "No mods to update.")
		return nil
	}

	warnIfServerRunning(ctx, u.cfg.ServerProcesses)

	confirmed := u.assumeYes
	if confirmed {
		err = PrintPlan(u.out, plan)
	} else {
		confirmed, err = Confirm(u.out, u.in, plan)
	}

	if err != nil {
		return err
	}

	if !confirmed {
		logger.Info(ctx, "Update cancelled.")
		return nil
	}

	if err = u.installer.Install(ctx, plan); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Mods updated", "count", len(plan))

	return nil
}
