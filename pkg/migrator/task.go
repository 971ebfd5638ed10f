package migrator

import (
	"context"
	"log/slog"
	"time"
)

type (
	// FailurePolicy decides what the Task does when a migration in a
	// batch fails. It is fixed at construction; the controller loop
	// consults it as a pure decision, not a mutable flag.
	FailurePolicy int

	// TaskConfig configures a migration Task.
	TaskConfig struct {
		// Session is the keyspace-scoped store handle. The Task owns it
		// for the duration of Migrate and closes it exactly once, as the
		// last action, on every path.
		Session Session

		// Repository supplies the available migrations.
		Repository Repository

		// TablePrefix optionally namespaces the journal and lease tables.
		TablePrefix string

		// Consensus enables the distributed lease so that only one
		// process at a time performs migrations. Without it, concurrent
		// callers race and rely on idempotent-safe scripts.
		Consensus bool

		// Policy selects strict (FailFast, default) or graceful
		// (Continue) handling of a failing migration in a batch.
		Policy FailurePolicy

		// LeaseTTL bounds how long a crashed holder blocks others.
		// Zero means DefaultLeaseTTL. Only used with Consensus.
		LeaseTTL time.Duration

		// Logger receives progress and warning output. Nil means
		// slog.Default().
		Logger *slog.Logger

		// Keyspace is used for log messages only.
		Keyspace string
	}

	// Task is the top-level migration controller. It compares the current
	// schema version against the latest available one, optionally
	// acquires the lease, and drives the Executor over each pending
	// migration under the configured failure policy.
	Task struct {
		session    Session
		repository Repository
		journal    *Journal
		lease      *LeaseCoordinator
		executor   *Executor
		policy     FailurePolicy
		consensus  bool
		logger     *slog.Logger
		keyspace   string
	}
)

const (
	// FailFast aborts the remaining batch on the first failing migration
	// and propagates the failure to the caller.
	FailFast FailurePolicy = iota

	// Continue logs a failing migration and proceeds with the next one,
	// accepting a partially migrated end state.
	Continue
)

// NewTask wires a Task from its collaborators. The journal, lease
// coordinator and executor all share the session handle; none of them
// closes it; that is the Task's job.
func NewTask(cfg TaskConfig) *Task {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	journal := NewJournal(cfg.Session, cfg.TablePrefix)

	return &Task{
		session:    cfg.Session,
		repository: cfg.Repository,
		journal:    journal,
		lease:      NewLeaseCoordinator(cfg.Session, cfg.TablePrefix, cfg.LeaseTTL),
		executor:   NewExecutor(cfg.Session, journal, logger),
		policy:     cfg.Policy,
		consensus:  cfg.Consensus,
		logger:     logger,
		keyspace:   cfg.Keyspace,
	}
}

// Migrate brings the keyspace up to the repository's latest version.
//
// The flow: read the current version; return early when up to date; with
// consensus enabled, try to claim the lease (a denied claim means another
// process is migrating, so skip rather than wait); re-check the version
// after acquiring (another process may have finished in between); then apply
// each pending migration in order under the failure policy.
//
// The lease is released and the session closed on every exit path,
// including failures. Migrate returns the first migration failure under
// FailFast, or nil under Continue (failures are logged and recorded in
// the journal).
func (t *Task) Migrate(ctx context.Context) (err error) {
	defer t.session.Close()

	if err := t.journal.EnsureSchema(ctx); err != nil {
		return err
	}

	latest := t.repository.LatestVersion()
	current, err := t.journal.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	if current >= latest {
		t.logger.Info("keyspace is already up to date",
			"keyspace", t.keyspace,
			"version", current,
		)
		return nil
	}

	if t.consensus {
		if err := t.lease.EnsureSchema(ctx); err != nil {
			return err
		}

		// Registered before the acquire attempt so release runs on every
		// path; it is a no-op when the lease was never held.
		defer func() {
			if releaseErr := t.lease.Release(ctx); releaseErr != nil {
				t.logger.Warn("failed to release migration lease", "error", releaseErr)
			}
		}()

		acquired, err := t.lease.TryAcquire(ctx, latest)
		if err != nil {
			return err
		}
		if !acquired {
			t.logger.Info("another process holds the migration lease, skipping",
				"keyspace", t.keyspace,
				"target_version", latest,
			)
			return nil
		}
	}

	// Double-check: another process may have migrated between the first
	// version read and lease acquisition.
	current, err = t.journal.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if current >= latest {
		t.logger.Info("keyspace was migrated by another process",
			"keyspace", t.keyspace,
			"version", current,
		)
		return nil
	}

	for _, migration := range t.repository.MigrationsSince(current) {
		if err := t.executor.Execute(ctx, migration); err != nil {
			if t.policy == Continue {
				t.logger.Warn("failed to migrate script, continuing",
					"script", migration.Name,
					"error", err,
				)
				continue
			}
			return err
		}
	}

	version, err := t.journal.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	t.logger.Info("migrated keyspace",
		"keyspace", t.keyspace,
		"version", version,
	)
	return nil
}
