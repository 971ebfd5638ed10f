package migrator

import (
	"context"
	"fmt"
	"time"

	"github.com/caretaker-db/caretaker/pkg/cassandra"
	"github.com/pkg/errors"
)

// journalTable is the name of the table that logs migration attempts.
// A configured table prefix is prepended as "<prefix>_schema_migration".
const journalTable = "schema_migration"

type (
	// Session defines the Cassandra operations the engine needs. It is
	// satisfied by *cassandra.Client; tests supply mocks.
	Session interface {
		Exec(ctx context.Context, stmt string, values ...any) error
		ExecCAS(ctx context.Context, stmt string, values ...any) (bool, error)
		Scan(ctx context.Context, stmt string, dest ...any) error
		Iter(ctx context.Context, stmt string, values ...any) cassandra.Rows
		AwaitSchemaAgreement(ctx context.Context) error
		Close()
	}

	// Journal owns the schema_migration log table. Every migration
	// attempt appends exactly one row; rows are never updated or deleted.
	// The current schema version is defined as the highest version among
	// successful rows, so a failed attempt followed by a later successful
	// one (or vice versa, under graceful failure) needs no cleanup.
	Journal struct {
		session Session
		table   string
	}

	// Record is one persisted migration attempt.
	Record struct {
		Version           int64
		ScriptName        string
		Script            string
		AppliedSuccessful bool
		ExecutedAt        time.Time
	}
)

// NewJournal creates a Journal over the given session. tablePrefix
// optionally namespaces the log table ("" yields "schema_migration",
// "myapp" yields "myapp_schema_migration").
func NewJournal(session Session, tablePrefix string) *Journal {
	return &Journal{
		session: session,
		table:   prefixed(tablePrefix, journalTable),
	}
}

func prefixed(prefix, table string) string {
	if prefix == "" {
		return table
	}
	return fmt.Sprintf("%s_%s", prefix, table)
}

// Table returns the journal's fully prefixed table name.
func (j *Journal) Table() string { return j.table }

// EnsureSchema creates the log table if it does not exist yet and waits
// for the cluster to agree on the change. Idempotent; a no-op when the
// table is already present.
//
// The table partitions on the success flag and clusters by version
// descending, which makes "highest successful version" a single-row read.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (`+
			`applied_successful boolean, `+
			`version bigint, `+
			`script_name varchar, `+
			`script text, `+
			`executed_at timestamp, `+
			`PRIMARY KEY (applied_successful, version)) `+
			`WITH CLUSTERING ORDER BY (version DESC)`,
		j.table,
	)

	if err := j.session.Exec(ctx, stmt); err != nil {
		return errors.Wrapf(err, "failed to create %s table", j.table)
	}
	if err := j.session.AwaitSchemaAgreement(ctx); err != nil {
		return errors.Wrapf(ErrSchemaAgreementTimeout, "after creating %s: %v", j.table, err)
	}
	return nil
}

// CurrentVersion returns the highest version among successful records, or
// 0 when no migration has succeeded yet. The read runs at the session's
// configured consistency level.
func (j *Journal) CurrentVersion(ctx context.Context) (int64, error) {
	stmt := fmt.Sprintf(
		"SELECT version FROM %s WHERE applied_successful = True ORDER BY version DESC LIMIT 1",
		j.table,
	)

	var version int64
	err := j.session.Scan(ctx, stmt, &version)
	if errors.Is(err, cassandra.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to read current schema version")
	}
	return version, nil
}

// Record appends one attempt row with the current wall-clock timestamp.
// Duplicate versions are expected under retries and are not an error.
func (j *Journal) Record(ctx context.Context, migration *Migration, success bool) error {
	stmt := fmt.Sprintf(
		"INSERT INTO %s (applied_successful, version, script_name, script, executed_at) VALUES (?, ?, ?, ?, ?)",
		j.table,
	)

	err := j.session.Exec(ctx, stmt, success, migration.Version, migration.Name, migration.Script, time.Now().UTC())
	return errors.Wrapf(err, "failed to record migration %s", migration.Name)
}

// Records returns every attempt row, successful rows first, each group in
// descending version order (the table's native clustering).
func (j *Journal) Records(ctx context.Context) ([]*Record, error) {
	stmt := fmt.Sprintf(
		"SELECT applied_successful, version, script_name, script, executed_at FROM %s",
		j.table,
	)

	rows := j.session.Iter(ctx, stmt)

	var records []*Record
	for {
		r := &Record{}
		if !rows.Scan(&r.AppliedSuccessful, &r.Version, &r.ScriptName, &r.Script, &r.ExecutedAt) {
			break
		}
		records = append(records, r)
	}
	if err := rows.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate migration records")
	}

	return records, nil
}
