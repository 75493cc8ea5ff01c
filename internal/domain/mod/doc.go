// Package mod contains the domain types shared by the scanner, the portal
// client and the updater: installed archives, portal releases and the
// update plan built from them.
package mod
