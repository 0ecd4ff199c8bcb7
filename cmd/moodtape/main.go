// Package main provides the moodtape CLI.
//
// Usage:
//
//	moodtape [flags] <command> [args]
//
// Commands:
//
//	generate - Submit a recap request and wait for the artifact
//	status   - Query the status of a submitted job
//	download - Request a download URL for a finished streamed job
//
// Configuration:
//
//	The backend base URL and poll tuning come from config.yaml or
//	AUDIOGEN_* / POLL_* environment variables; flags override both.
package main

import (
	"fmt"
	"os"

	"github.com/moodtape/audiogen/cmd/moodtape/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
