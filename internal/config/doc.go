// Package config defines the updater's own YAML settings and loads the
// Factorio server settings file that carries the mod portal credentials.
//
// A missing YAML file means defaults; a missing server settings file means
// empty credentials, which the updater reports before doing any work.
package config
