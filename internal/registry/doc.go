// Package registry is a client for the Factorio mod portal.
//
// It fetches the release list of a mod and streams release archives, both
// authenticated with the portal token as a bearer credential.
package registry
