package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/reshape/reshape-go/specstore"
	"github.com/reshape/reshape-go/transform"
)

func defineApplyCommand() {
	applyCmd := &Command{
		Name:        "apply",
		Description: "Apply a chain spec to a JSON document",
		FlagSet:     flag.NewFlagSet("apply", flag.ExitOnError),
	}

	specFile := applyCmd.FlagSet.String("spec", "", "Chain spec file (json or yaml)")
	inputFile := applyCmd.FlagSet.String("input", "", "Input document file (defaults to stdin)")
	outputFile := applyCmd.FlagSet.String("output", "", "Output file (defaults to stdout)")
	pretty := applyCmd.FlagSet.Bool("pretty", false, "Indent the output")

	applyCmd.Run = func() error {
		if *specFile == "" {
			return fmt.Errorf("no spec file specified")
		}
		chain, err := loadChain(*specFile)
		if err != nil {
			return err
		}

		var inputData []byte
		if *inputFile == "" {
			inputData, err = io.ReadAll(os.Stdin)
		} else {
			inputData, err = os.ReadFile(*inputFile)
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		var doc map[string]interface{}
		if err := json.Unmarshal(inputData, &doc); err != nil {
			return fmt.Errorf("parsing input: %w", err)
		}

		result, err := chain.Transform(doc)
		if err != nil {
			return fmt.Errorf("applying chain: %w", err)
		}

		var output []byte
		if *pretty {
			output, err = json.MarshalIndent(result, "", "  ")
		} else {
			output, err = json.Marshal(result)
		}
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		output = append(output, '\n')

		if *outputFile == "" {
			_, err = os.Stdout.Write(output)
			return err
		}
		return os.WriteFile(*outputFile, output, 0o644)
	}

	commands[applyCmd.Name] = applyCmd
}

func loadChain(path string) (*transform.Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec: %w", err)
	}
	chain, err := specstore.CompileChain(data)
	if err != nil {
		return nil, fmt.Errorf("compiling spec: %w", err)
	}
	return chain, nil
}
