// Copyright (c) 2024 cblomart
// Licensed under the MIT License

package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "contentctl",
		Usage: "Validate, list and link AnimePortal content trees",
		Commands: []*cli.Command{
			ValidateCommand,
			ListCommand,
			LinkCommand,
			ResolveCommand,
			NormalizeCommand,
			TokenCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
