package main

import (
	"os"

	"github.com/tillberg/autorestart"

	"github.com/dpereira/agendai/internal/cli"
)

func main() {
	go autorestart.RestartOnChange()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
