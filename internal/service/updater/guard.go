package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/factorio-modupdate/internal/logger"
)

// markerLifetime is the period after which a leftover run marker is ignored.
const markerLifetime = time.Hour

var errUpdaterAlreadyRunning = errors.New("the updater is already running")

// IsUpdaterRunningNow checks presence of the marker file and removes it if it looks stale.
func IsUpdaterRunningNow(ctx context.Context, markerPath string) bool {
	fileInfo, err := os.Stat(markerPath)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.InfoKV(ctx, "The update marker is too old, removing it", "path", markerPath)

		return os.Remove(markerPath) != nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to read update marker", "path", markerPath, "error", err)
	}

	return false
}

// acquireMarker creates the run marker and returns a function removing it.
func acquireMarker(ctx context.Context, markerPath string) (func(), error) {
	markerPath = filepath.Clean(markerPath)

	if IsUpdaterRunningNow(ctx, markerPath) {
		return nil, fmt.Errorf("%w: marker %s", errUpdaterAlreadyRunning, markerPath)
	}

	marker, err := os.OpenFile(markerPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: marker %s", errUpdaterAlreadyRunning, markerPath)
	}

	if err != nil {
		return nil, fmt.Errorf("create update marker: %w", err)
	}

	_, _ = fmt.Fprintf(marker, "%d\n", os.Getpid())

	if err = marker.Close(); err != nil {
		return nil, fmt.Errorf("close update marker: %w", err)
	}

	return func() {
		_ = os.Remove(markerPath)
	}, nil
}

// runningServerProcesses returns the PIDs of processes whose executable matches one of names.
func runningServerProcesses(names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}

	processList, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		for _, name := range names {
			if strings.EqualFold(process.Executable(), name) {
				pids = append(pids, process.Pid())
				break
			}
		}
	}

	return pids, nil
}

// warnIfServerRunning reports a running Factorio server, whose mods may be locked or reloaded.
func warnIfServerRunning(ctx context.Context, names []string) {
	pids, err := runningServerProcesses(names)
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)
		return
	}

	if len(pids) > 0 {
		logger.WarnKV(ctx, "A Factorio server is running, restart it after the update", "pids", pids)
	}
}
