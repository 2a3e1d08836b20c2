package main

import (
	"os"

	"github.com/sysjosh/digestd/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersionInfo(version, commit)
	os.Exit(cli.Execute())
}
