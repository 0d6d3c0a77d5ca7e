package main

import (
	"flag"
	"fmt"

	"github.com/reshape/reshape-go/function"
)

func defineFunctionsCommand() {
	functionsCmd := &Command{
		Name:        "functions",
		Description: "List the built-in spec functions",
		FlagSet:     flag.NewFlagSet("functions", flag.ExitOnError),
	}

	functionsCmd.Run = func() error {
		for _, name := range function.NewRegistry().Names() {
			fmt.Println(name)
		}
		return nil
	}

	commands[functionsCmd.Name] = functionsCmd
}
