package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/reshape/reshape-go/document"
)

func defineGetCommand() {
	getCmd := &Command{
		Name:        "get",
		Description: "Extract a value from a JSON document by path",
		FlagSet:     flag.NewFlagSet("get", flag.ExitOnError),
	}

	pathExpr := getCmd.FlagSet.String("path", "", "Dotted path into the document")
	inputFile := getCmd.FlagSet.String("input", "", "Input document file (defaults to stdin)")

	getCmd.Run = func() error {
		if *pathExpr == "" {
			return fmt.Errorf("no path specified")
		}

		var data []byte
		var err error
		if *inputFile == "" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(*inputFile)
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		provider, err := document.NewProviderFromJSON(data)
		if err != nil {
			return err
		}
		value, ok := provider.Get(*pathExpr)
		if !ok {
			return fmt.Errorf("path not found: %s", *pathExpr)
		}

		output, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding value: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	commands[getCmd.Name] = getCmd
}
