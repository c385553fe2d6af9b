package main

import (
	"github.com/adamwoolhether/lattice/app/wallet/cli/cmd"
)

func main() {
	cmd.Execute()
}
