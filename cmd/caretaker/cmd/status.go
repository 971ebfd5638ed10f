package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/caretaker-db/caretaker/pkg/migrator"
	"github.com/urfave/cli/v3"
)

// Status creates the status command showing the keyspace migration state.
//
// Example usage:
//
//	caretaker status --hosts localhost:9042 --keyspace app
func Status() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show current schema version and pending migrations",
		Description: `Show the keyspace's current schema version, any pending migrations,
and the recorded history of migration attempts (including failures).`,
		Flags: connectionFlags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			repo, err := migrator.LoadDir(os.DirFS(cfg.Dir))
			if err != nil {
				return err
			}

			client, err := connect(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			journal := migrator.NewJournal(client, cfg.TablePrefix)
			if err := journal.EnsureSchema(ctx); err != nil {
				return err
			}

			current, err := journal.CurrentVersion(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "Keyspace:        %s\n", cfg.Cassandra.Keyspace)
			fmt.Fprintf(cmd.Writer, "Current version: %d\n", current)
			fmt.Fprintf(cmd.Writer, "Latest version:  %d\n", repo.LatestVersion())

			pending := repo.MigrationsSince(current)
			fmt.Fprintf(cmd.Writer, "Pending:         %d\n", len(pending))
			for _, m := range pending {
				fmt.Fprintf(cmd.Writer, "  %d\t%s\n", m.Version, m.Name)
			}

			records, err := journal.Records(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return nil
			}

			fmt.Fprintln(cmd.Writer, "\nHistory:")
			for _, r := range records {
				outcome := "ok"
				if !r.AppliedSuccessful {
					outcome = "FAILED"
				}
				fmt.Fprintf(cmd.Writer, "  %d\t%s\t%s\t%s\n",
					r.Version, r.ScriptName, outcome, r.ExecutedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
