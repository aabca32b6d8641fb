package main

import (
	"errors"
	"os"

	"archupdates/internal/cli"
	"archupdates/internal/ui"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !errors.Is(err, cli.ErrSourcesFailed) {
			ui.ErrorMsg("%v", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
