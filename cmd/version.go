package cmd

import (
	"fmt"
	"runtime"
)

// Build-time variables, set via -ldflags.
var (
	Version   = "development"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// runVersion displays version information.
func runVersion() {
	fmt.Printf("frontdesk %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildTime)
	fmt.Printf("  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
