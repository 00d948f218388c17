// Command uov validates telecom orders against subscriber asset
// hierarchies.
package main

import (
	"fmt"
	"os"

	"github.com/esungul/UniveralValidator/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "uov: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
