package buildconfig

// Set at build time via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the build version.
func Version() string {
	return version
}

// Commit returns the git commit hash the binary was built from.
func Commit() string {
	return commit
}
