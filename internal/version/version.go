package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/itsmostafa/goplay/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String renders the version line printed by `goplay --version`.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s)", Version, Commit, BuildDate, runtime.Version())
}
