package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ServerSettings is the subset of the Factorio server settings file used to
// authenticate against the mod portal. Other keys of the file are ignored.
type ServerSettings struct {
	// Username is the portal account name.
	Username string `json:"username"`
	// Token is the portal API token sent as a bearer credential.
	Token string `json:"token"`
}

// HasCredentials reports whether both the username and the token are set.
func (s *ServerSettings) HasCredentials() bool {
	return s != nil && s.Username != "" && s.Token != ""
}

// LoadServerSettings reads the server settings file.
// A missing file yields empty settings; malformed JSON is an error.
func LoadServerSettings(path string) (*ServerSettings, error) {
	if path == "" {
		path = DefaultServerSettingsFile
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return new(ServerSettings), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read server settings: %w", err)
	}

	var settings ServerSettings
	if err = json.Unmarshal(contents, &settings); err != nil {
		return nil, fmt.Errorf("decode server settings %s: %w", path, err)
	}

	return &settings, nil
}
