package main

import (
	"os"

	"github.com/opsflare-systems/opsflare/cmd/opsflare/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
