package main

import (
	"os"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/cli"
)

// Stamped by the linker: -ldflags "-X main.version=v1.2.3".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
