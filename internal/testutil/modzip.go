// Package testutil builds mod archives for tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// WriteArchive creates a zip at path with the provided entries.
func WriteArchive(t testing.TB, path string, entries map[string]string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	file, err := os.Create(path)
	require.NoError(t, err)

	writer := zip.NewWriter(file)

	for name, body := range entries {
		w, err := writer.Create(name)
		require.NoError(t, err)

		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	require.NoError(t, file.Close())
}

// WriteModArchive creates {dir}/{name}_{version}.zip the way the portal packages mods:
// a top-level folder holding info.json.
func WriteModArchive(t testing.TB, dir, name, version string) string {
	t.Helper()

	folder := name + "_" + version
	path := filepath.Join(dir, folder+".zip")
	info := fmt.Sprintf(`{"name": %q, "version": %q, "title": "Test mod"}`, name, version)

	WriteArchive(t, path, map[string]string{
		folder + "/info.json":   info,
		folder + "/control.lua": "-- empty",
	})

	return path
}
