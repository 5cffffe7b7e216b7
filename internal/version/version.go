//nolint:gochecknoglobals // version info set via ldflags
package version

// These variables are intended to be set via -ldflags at build time.
// Example:
//
//	-X github.com/bavix/dobson/internal/version.Version=v1.2.3 \
//	-X github.com/bavix/dobson/internal/version.BuildTime=2025-09-24T12:00:00Z
var (
	Version   = "dev"
	BuildTime = ""
)

func GetVersion() string { return Version }

func GetBuildTime() string { return BuildTime }

// String renders "version (built at)" for --version and /api/v1/info.
func String() string {
	if BuildTime == "" {
		return Version
	}

	return Version + " (" + BuildTime + ")"
}
