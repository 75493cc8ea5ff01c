package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/factorio-modupdate/internal/config"
	"github.com/oshokin/factorio-modupdate/internal/domain/mod"
)

const testToken = "portal-token"

// portal is a fake mod portal serving release lists and archives.
type portal struct {
	mu        sync.Mutex
	releases  map[string][]mod.Release
	archives  map[string][]byte
	lookups   []string
	downloads []string
}

// newPortal starts the fake portal and returns it with its base URL.
func newPortal(t *testing.T) (*portal, string) {
	t.Helper()

	p := &portal{
		releases: make(map[string][]mod.Release),
		archives: make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/mods/{name}/full", p.handleFull)
	mux.HandleFunc("GET /download/{name}/{version}", p.handleDownload)

	server := httptest.NewServer(p.authorize(mux))
	t.Cleanup(server.Close)

	return p, server.URL
}

// addRelease publishes a release whose archive body names the mod and version.
func (p *portal) addRelease(name, version string) mod.Release {
	p.mu.Lock()
	defer p.mu.Unlock()

	release := mod.Release{
		Version:     version,
		DownloadURL: fmt.Sprintf("/download/%s/%s", name, version),
		FileName:    fmt.Sprintf("%s_%s.zip", name, version),
	}

	p.releases[name] = append(p.releases[name], release)
	p.archives[release.DownloadURL] = []byte("archive of " + name + " " + version)

	return release
}

func (p *portal) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (p *portal) handleFull(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := r.PathValue("name")
	p.lookups = append(p.lookups, name)

	releases, ok := p.releases[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":     name,
		"releases": releases,
	})
}

func (p *portal) handleDownload(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloads = append(p.downloads, r.URL.Path)

	body, ok := p.archives[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	_, _ = w.Write(body)
}

// workspace is a server directory with mods, settings and an updater config.
type workspace struct {
	cfg        *config.Config
	configPath string
}

// newWorkspace prepares a server directory pointed at portalURL.
func newWorkspace(t *testing.T, portalURL string) *workspace {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		ModsDir:            filepath.Join(dir, "mods"),
		ServerSettingsFile: filepath.Join(dir, "settings", "server-settings.json"),
		PortalURL:          portalURL,
		MarkerFile:         filepath.Join(dir, "factorio-modupdate.lock"),
		ServerProcesses:    []string{},
	}

	configPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(configPath, cfg))

	require.NoError(t, os.MkdirAll(cfg.ModsDir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.ServerSettingsFile), 0o755))

	settings := fmt.Sprintf(`{"name": "test server", "username": "engineer", "token": %q}`, testToken)
	require.NoError(t, os.WriteFile(cfg.ServerSettingsFile, []byte(settings), 0o600))

	return &workspace{cfg: cfg, configPath: configPath}
}

// modFiles lists the mods directory.
func (w *workspace) modFiles(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(w.cfg.ModsDir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names
}

// saveConfig rewrites the workspace config file.
func saveConfig(w *workspace) error {
	return config.Save(w.configPath, w.cfg)
}

// Lookups returns the mod names whose release list was requested.
func (p *portal) Lookups() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.lookups...)
}

// Downloads returns the requested download paths.
func (p *portal) Downloads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.downloads...)
}
