package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/reshape/reshape-go/specstore"
)

func defineSpecsCommand() {
	specsCmd := &Command{
		Name:        "specs",
		Description: "List chain specs in a directory",
		FlagSet:     flag.NewFlagSet("specs", flag.ExitOnError),
	}

	dir := specsCmd.FlagSet.String("dir", ".", "Spec directory")

	specsCmd.Run = func() error {
		store, err := specstore.NewFSStore(*dir)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		names, err := store.List(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			if *verbose {
				data, err := store.Load(ctx, name)
				if err != nil {
					fmt.Printf("%s\t(unreadable: %v)\n", name, err)
					continue
				}
				chain, err := specstore.CompileChain(data)
				if err != nil {
					fmt.Printf("%s\t(invalid: %v)\n", name, err)
					continue
				}
				fmt.Printf("%s\t%d operation(s)\n", name, chain.Len())
			} else {
				fmt.Println(name)
			}
		}
		return nil
	}

	commands[specsCmd.Name] = specsCmd
}
