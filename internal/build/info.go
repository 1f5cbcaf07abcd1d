// Package build carries version metadata stamped in at link time.
package build

import "fmt"

// Name is the binary and service name.
const Name = "formrelay"

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}

// UserAgent is sent on outbound HTTP calls.
func UserAgent() string {
	return Name + "/" + Version
}
