package main

import (
	"flag"
	"fmt"
	"os"
)

func defineValidateCommand() {
	validateCmd := &Command{
		Name:        "validate",
		Description: "Check that chain spec files compile",
		FlagSet:     flag.NewFlagSet("validate", flag.ExitOnError),
	}

	validateCmd.Run = func() error {
		files := validateCmd.FlagSet.Args()
		if len(files) < 1 {
			return fmt.Errorf("no spec files specified")
		}

		failed := 0
		for _, file := range files {
			chain, err := loadChain(file)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
				failed++
				continue
			}
			if *verbose {
				fmt.Printf("%s: ok (%d operations)\n", file, chain.Len())
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d spec files failed", failed, len(files))
		}
		fmt.Printf("validated %d spec file(s)\n", len(files))
		return nil
	}

	commands[validateCmd.Name] = validateCmd
}
