// Package main provides collabctl, the operator CLI for the tracked domain
// list and the toast notification API.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd(defaultDeps()).Execute(); err != nil {
		os.Exit(1)
	}
}
