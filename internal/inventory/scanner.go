package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/factorio-modupdate/internal/domain/mod"
	"github.com/oshokin/factorio-modupdate/internal/logger"
)

const (
	// ArchivePattern matches mod archives inside the mods directory.
	ArchivePattern = "*.zip"

	// InfoFileSuffix identifies the metadata entry inside an archive.
	InfoFileSuffix = "info.json"
)

// errNoInfoFile is returned by readInfo when the archive has no metadata entry.
var errNoInfoFile = errors.New("info file not found")

// info is the part of a mod's info.json the scanner cares about.
// Version is nil when the key is absent.
type info struct {
	Name    string  `json:"name"`
	Version *string `json:"version"`
}

// Scanner inventories mod archives in a directory.
type Scanner struct {
	// dir is the mods directory.
	dir string
}

// NewScanner creates a scanner for the provided mods directory.
func NewScanner(dir string) *Scanner {
	return &Scanner{
		dir: filepath.Clean(dir),
	}
}

// Scan reads every archive in the directory and returns the installed mods sorted by name.
// Archives without metadata or without a declared name are skipped with a warning.
// A corrupt archive or unreadable metadata aborts the scan.
func (s *Scanner) Scan(ctx context.Context) ([]mod.Installed, error) {
	archives, err := filepath.Glob(filepath.Join(s.dir, ArchivePattern))
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}

	byName := make(map[string]mod.Installed, len(archives))

	for _, archive := range archives {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		label := strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive))

		var meta *info

		meta, err = readInfo(archive)
		if errors.Is(err, errNoInfoFile) {
			logger.WarnKV(ctx, "Info file not found in archive, skipping", "mod", label, "archive", archive)
			continue
		}

		if err != nil {
			return nil, err
		}

		if meta.Name == "" {
			logger.WarnKV(ctx, "Name not found in info file, skipping", "mod", label, "archive", archive)
			continue
		}

		version := mod.UnknownVersion
		if meta.Version != nil {
			version = *meta.Version
		}

		if previous, found := byName[meta.Name]; found {
			logger.DebugKV(ctx, "Duplicate mod name, later archive wins",
				"mod", meta.Name, "previous", previous.ArchivePath, "archive", archive)
		}

		byName[meta.Name] = mod.Installed{
			Name:        meta.Name,
			Version:     version,
			ArchivePath: archive,
		}
	}

	installed := make([]mod.Installed, 0, len(byName))
	for _, m := range byName {
		installed = append(installed, m)
	}

	sort.Slice(installed, func(i, j int) bool {
		return installed[i].Name < installed[j].Name
	})

	logger.DebugKV(ctx, "Scanned mods directory", "dir", s.dir, "archives", len(archives), "mods", len(installed))

	return installed, nil
}

// readInfo decodes the first entry ending with InfoFileSuffix.
func readInfo(archive string) (*info, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", archive, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if !strings.HasSuffix(file.Name, InfoFileSuffix) {
			continue
		}

		entry, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", file.Name, archive, err)
		}

		var meta info

		err = json.NewDecoder(entry).Decode(&meta)
		_ = entry.Close()

		if err != nil {
			return nil, fmt.Errorf("decode %s in %s: %w", file.Name, archive, err)
		}

		return &meta, nil
	}

	return nil, errNoInfoFile
}
