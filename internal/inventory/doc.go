// Package inventory lists the mods installed in a mods directory by reading
// the info.json embedded in every zip archive.
package inventory
