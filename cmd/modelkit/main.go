// Command modelkit inspects images and settings using the modelkit runtime.
package main

import (
	"os"

	"github.com/go-drift/modelkit/cmd/modelkit/cmd"
	"github.com/go-drift/modelkit/pkg/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
