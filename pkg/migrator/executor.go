package migrator

import (
	"context"
	"log/slog"

	"github.com/caretaker-db/caretaker/pkg/cql"
	"github.com/pkg/errors"
)

// Executor applies one migration's statements in sequence and records the
// outcome in the journal. After every statement it verifies that the
// cluster converged on the resulting schema before moving on; Cassandra
// applies each statement with best-effort atomicity only, so there is no
// rollback of a partially applied script.
type Executor struct {
	session Session
	journal *Journal
	logger  *slog.Logger
}

// NewExecutor creates an executor writing outcomes to the given journal.
// A nil logger falls back to slog.Default().
func NewExecutor(session Session, journal *Journal, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		session: session,
		journal: journal,
		logger:  logger,
	}
}

// Execute applies a single migration. Every attempt, successful or not,
// produces exactly one journal record.
//
// On any statement error the remaining statements are abandoned, a
// failure record is written, and a *MigrationFailure carrying the script
// name and the exact failing statement is returned. Statement-splitter
// and journal errors propagate as-is; they indicate infrastructure
// problems rather than a failed migration.
//
// A script with zero non-blank statements is recorded as an immediate
// success with no execution steps.
func (e *Executor) Execute(ctx context.Context, migration *Migration) error {
	e.logger.Debug("about to execute migration",
		"script", migration.Name,
		"version", migration.Version,
	)

	statements, err := cql.Split(migration.Script)
	if err != nil {
		return errors.Wrapf(err, "failed to split script %s", migration.Name)
	}

	for _, stmt := range statements {
		if err := e.executeStatement(ctx, stmt); err != nil {
			if recordErr := e.journal.Record(ctx, migration, false); recordErr != nil {
				e.logger.Warn("failed to record migration failure",
					"script", migration.Name,
					"error", recordErr,
				)
			}
			return &MigrationFailure{
				ScriptName: migration.Name,
				Statement:  stmt,
				Err:        err,
			}
		}
	}

	if err := e.journal.Record(ctx, migration, true); err != nil {
		return err
	}

	e.logger.Debug("successfully applied migration",
		"script", migration.Name,
		"version", migration.Version,
		"statements", len(statements),
	)
	return nil
}

// executeStatement runs one statement at the session's consistency level
// and waits for cluster-wide schema agreement before returning.
func (e *Executor) executeStatement(ctx context.Context, stmt string) error {
	if err := e.session.Exec(ctx, stmt); err != nil {
		return err
	}
	if err := e.session.AwaitSchemaAgreement(ctx); err != nil {
		return errors.Wrapf(ErrSchemaAgreementTimeout,
			"you might consider increasing the max schema agreement wait: %v", err)
	}
	return nil
}
