package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caretaker-db/caretaker/pkg/config"
	"github.com/caretaker-db/caretaker/pkg/migrator"
	"github.com/urfave/cli/v3"
)

// Migrate creates the migrate command for applying pending migrations.
//
// The command reads the current schema version from the journal table,
// loads pending scripts from the configured directory, and applies them
// in version order. Each script is split into statements and executed
// one at a time, waiting for cluster-wide schema agreement after every
// statement.
//
// Example usage:
//
//	# Apply all pending migrations
//	caretaker migrate --hosts localhost:9042 --keyspace app
//
//	# Show what would be executed without applying
//	caretaker migrate --hosts localhost:9042 --keyspace app --dry-run
//
//	# Let concurrent deployments elect a single migrator
//	caretaker migrate --hosts localhost:9042 --keyspace app --consensus
func Migrate() *cli.Command {
	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"apply"},
		Usage:   "Apply pending migrations to the keyspace",
		Description: `Apply all pending migrations to the configured keyspace.

Scripts are applied in ascending version order. Every attempt is
recorded in the schema_migration journal; the current version is the
highest successfully applied one. Cassandra offers no multi-statement
transactions, so a script failing partway leaves its applied prefix in
place; write forward-only, idempotent-safe statements.

With --consensus, concurrent processes race for a conditional-write
lease and only the winner migrates; the others skip and observe the
result. With --fail-gracefully, a failing script is logged and skipped
instead of aborting the batch.

Migration files are loaded from the configured directory and must be
named <version>_<description>.cql.`,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show pending migrations without applying them",
			},
			&cli.BoolFlag{
				Name:  "consensus",
				Usage: "Coordinate with other processes via a conditional-write lease",
			},
			&cli.BoolFlag{
				Name:  "fail-gracefully",
				Usage: "Log and skip a failing migration instead of aborting the batch",
			},
		}, connectionFlags...),
		Action: runMigrate,
	}
}

func runMigrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("consensus") {
		cfg.Consensus = true
	}
	if cmd.Bool("fail-gracefully") {
		cfg.FailGracefully = true
	}

	repo, err := migrator.LoadDir(os.DirFS(cfg.Dir))
	if err != nil {
		return err
	}
	slog.Info("loaded migrations", "dir", cfg.Dir, "count", len(repo.Migrations()))

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	slog.Info("connected to Cassandra",
		"keyspace", client.Keyspace(),
		"consistency", client.Consistency().String(),
	)

	if cmd.Bool("dry-run") {
		return dryRun(ctx, cmd, cfg, client, repo)
	}

	return buildTask(cfg, client, repo).Migrate(ctx)
}

func buildTask(cfg *config.Config, session migrator.Session, repo migrator.Repository) *migrator.Task {
	policy := migrator.FailFast
	if cfg.FailGracefully {
		policy = migrator.Continue
	}

	return migrator.NewTask(migrator.TaskConfig{
		Session:     session,
		Repository:  repo,
		TablePrefix: cfg.TablePrefix,
		Consensus:   cfg.Consensus,
		Policy:      policy,
		LeaseTTL:    time.Duration(cfg.LeaseTTL),
		Keyspace:    cfg.Cassandra.Keyspace,
	})
}

// dryRun lists what migrate would apply, without executing anything.
func dryRun(ctx context.Context, cmd *cli.Command, cfg *config.Config, session migrator.Session, repo *migrator.DirRepository) error {
	defer session.Close()

	journal := migrator.NewJournal(session, cfg.TablePrefix)
	if err := journal.EnsureSchema(ctx); err != nil {
		return err
	}

	current, err := journal.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	pending := repo.MigrationsSince(current)
	fmt.Fprintf(cmd.Writer, "Current version: %d\n", current)
	if len(pending) == 0 {
		fmt.Fprintln(cmd.Writer, "Keyspace is up to date; nothing to apply.")
		return nil
	}

	fmt.Fprintf(cmd.Writer, "Would apply %d migration(s):\n", len(pending))
	for _, m := range pending {
		fmt.Fprintf(cmd.Writer, "  %d\t%s\n", m.Version, m.Name)
	}
	return nil
}
