// Package constant defines immutable application-level identifiers.
package constant

const (
	// App is the canonical application identifier used for filesystem paths, env prefixes and CLI branding.
	App = "vodsync"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgent is sent with every request to the log directory and the track search service.
	UserAgent = App + "/" + Version
)

// Build metadata, overridden with -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

const (
	// ReleasesURL is the public releases page.
	ReleasesURL = "https://github.com/vodsync/vodsync/releases"

	// ReleasesAPI returns the latest release as JSON.
	ReleasesAPI = "https://api.github.com/repos/vodsync/vodsync/releases/latest"
)
