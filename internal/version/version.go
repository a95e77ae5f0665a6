// Package version holds build metadata injected at link time.
package version

// Version is overridden by -ldflags on release builds.
var Version = "dev"
