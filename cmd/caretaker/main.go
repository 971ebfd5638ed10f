package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/caretaker-db/caretaker/cmd/caretaker/cmd"
	"github.com/urfave/cli/v3"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", version)
		fmt.Fprintln(cmd.Writer, "Commit:", commit)
		fmt.Fprintln(cmd.Writer, "Date:", date)
	}

	app := &cli.Command{
		Name:  "caretaker",
		Usage: "A tool for managing Cassandra keyspace migrations",
		Description: `caretaker applies versioned CQL migration scripts to a Cassandra
keyspace exactly once per script, records every attempt in a journal
table, and can coordinate concurrent deployments through a
conditional-write lease so that only one process migrates at a time.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the caretaker config file",
				Sources: cli.EnvVars("CARETAKER_CONFIG"),
				Value:   "caretaker.yaml",
			},
		},
		Commands: []*cli.Command{
			cmd.Migrate(),
			cmd.Status(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
