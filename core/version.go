package core

// Build metadata, injected with ldflags:
//
//	go build -ldflags "-X cv_backend/core.Version=$(git describe --tags --always) \
//	  -X cv_backend/core.GitCommit=$(git rev-parse --short HEAD) \
//	  -X cv_backend/core.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" .
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GetVersionInfo returns "version (built time, commit hash)".
func GetVersionInfo() string {
	return Version + " (built " + BuildTime + ", commit " + GitCommit + ")"
}
