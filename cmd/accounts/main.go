package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aussiebroadwan/accounts/internal/accounts/app"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n\nConfiguration is read from the environment.\n\n", os.Args[0])
		if desc, err := app.Usage(); err == nil {
			fmt.Fprintln(flag.CommandLine.Output(), desc)
		}
	}
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
