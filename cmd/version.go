package cmd

import (
	"fmt"
	"runtime"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
)

// runVersion prints version information.
func runVersion() {
	fmt.Printf("sankofa %s\n", Version)
	fmt.Printf("  build time: %s\n", BuildTime)
	fmt.Printf("  go version: %s\n", runtime.Version())
	fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
