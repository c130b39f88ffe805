// Package buildinfo carries release metadata stamped in with -ldflags:
//
//	-X 'github.com/m3rciful/nfcrelay/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/nfcrelay/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/nfcrelay/core/buildinfo.Date=2026-01-05T12:00:00Z'
package buildinfo

var (
	Version = "dev"
	Commit  = "local"
	// Date is the build time in RFC3339; empty for local builds.
	Date = ""
)

// String formats the build as "version (commit)".
func String() string {
	return Version + " (" + Commit + ")"
}
