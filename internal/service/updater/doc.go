// Package updater runs one synchronization pass of the mods directory.
//
// It inventories installed archives, asks the mod portal for the latest
// release of each, shows the resulting plan, and after confirmation removes
// old archives and swaps in the downloaded ones, one mod at a time.
package updater
