// Package build holds build-time metadata.
package build

// Version is the application version.
// It is overridden at build time via -ldflags.
var Version = "dev"
