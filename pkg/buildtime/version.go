// Package buildtime exposes values baked in when shiplane was built.
package buildtime

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

//go:embed revision
var revision string

func init() {
	version = strings.TrimSpace(version)
	revision = strings.TrimSpace(revision)
}

// VersionString names this build: version and the commit it came from.
func VersionString() string {
	return version + " (commit: " + revision + ")"
}
