package main

import (
	"fmt"
	"os"

	"github.com/tphakala/labelgrid/cmd"
	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/logger"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Main.Version = version

	err = cmd.RootCommand(settings).Execute()
	if flushErr := logger.Global().Flush(); flushErr != nil {
		fmt.Fprintf(os.Stderr, "error flushing logs: %v\n", flushErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
