// Package version carries build identification, set with -ldflags.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = ""
)

// String returns the version, with the commit when one was stamped.
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
