// reshaped serves chain specs over HTTP: it loads specs from a directory,
// recompiles them when they change, and applies them to posted documents.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

var (
	httpAddr   = flag.String("http-addr", ":8080", "HTTP listen address")
	specDir    = flag.String("spec-dir", "specs", "Directory of chain spec files")
	configFile = flag.String("config", "", "Config file (yaml or json)")
	hotReload  = flag.Bool("hot-reload", true, "Recompile specs when their files change")
)

func main() {
	flag.Parse()

	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	var cfg *daemonConfig
	if *configFile != "" {
		var err error
		cfg, err = loadDaemonConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		applyDaemonConfig(cfg, setFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received %s, shutting down", sig)
		cancel()
	}()

	state, err := newServerState(ctx, *specDir, *hotReload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg != nil && cfg.Pipeline.Enabled {
		go func() {
			if err := runPipeline(ctx, cfg.Pipeline, state); err != nil {
				log.Printf("pipeline: %v", err)
				cancel()
			}
		}()
	}

	if err := serveHTTP(ctx, *httpAddr, state); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
