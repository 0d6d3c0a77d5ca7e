package main

import (
	"flag"
	"fmt"
	"os"
)

// Command represents a sub-command of reshapec
type Command struct {
	Name        string
	Description string
	FlagSet     *flag.FlagSet
	Run         func() error
}

var (
	verbose = flag.Bool("verbose", false, "Show detailed output")

	commands = make(map[string]*Command)
)

func main() {
	defineCommands()

	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: reshapec <command> [options]")
		fmt.Fprintln(os.Stderr, "Available commands:")
		for name, cmd := range commands {
			fmt.Fprintf(os.Stderr, "  %s\t%s\n", name, cmd.Description)
		}
		flag.PrintDefaults()
		os.Exit(1)
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmdName)
		fmt.Fprintln(os.Stderr, "Available commands:")
		for name, cmd := range commands {
			fmt.Fprintf(os.Stderr, "  %s\t%s\n", name, cmd.Description)
		}
		os.Exit(1)
	}

	cmd.FlagSet.Parse(args[1:])

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defineCommands() {
	defineApplyCommand()
	defineGetCommand()
	defineValidateCommand()
	defineFunctionsCommand()
	defineSpecsCommand()
}
