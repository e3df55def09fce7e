// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"codeberg.org/oliverandrich/snippetshare/internal/config"
	"codeberg.org/oliverandrich/snippetshare/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	cmd := &cli.Command{
		Name:    "snippetshare",
		Usage:   "Account verification and snippet sharing API",
		Version: Version,
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the API server",
				Action: server.Run,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{Name: "up", Usage: "Apply pending migrations", Action: server.Migrate("up")},
					{Name: "down", Usage: "Roll back the last migration", Action: server.Migrate("down")},
					{Name: "reset", Usage: "Roll back all migrations", Action: server.Migrate("reset")},
				},
			},
			{
				Name:   "gc",
				Usage:  "Delete expired passcodes, sessions and share links",
				Action: server.GC,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
