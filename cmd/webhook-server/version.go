package main

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags "-X main.version=... -X main.commit=..."
var (
	version   = "0.1.0"
	commit    = "dev"
	buildDate = "unknown"
)

func printVersion() {
	fmt.Printf("bracket-webhook-bot v%s\n", version)
	fmt.Printf("Build: %s (%s)\n", commit, buildDate)
	fmt.Printf("Go: %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
