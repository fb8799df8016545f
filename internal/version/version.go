// Package version holds build identification, overridable at link time:
//
//	go build -ldflags "-X github.com/teranos/herald/internal/version.Version=v0.2.0"
package version

var (
	// Version is the semantic version of this build
	Version = "v0.1.0"
	// Commit is the git commit the binary was built from
	Commit = "unknown"
)

// Full returns the version with commit suffix
func Full() string {
	return Version + " (" + Commit + ")"
}
