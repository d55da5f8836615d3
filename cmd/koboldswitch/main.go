package main

import (
	"os"

	"koboldswitch/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
