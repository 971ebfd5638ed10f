package migrator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/caretaker-db/caretaker/pkg/migrator"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(session *mockSession) *migrator.Executor {
	return migrator.NewExecutor(session, migrator.NewJournal(session, ""), nil)
}

func TestExecutor_Execute(t *testing.T) {
	migration := &migrator.Migration{
		Version: 1,
		Name:    "0001_users.cql",
		Script: `
			CREATE TABLE users (id uuid PRIMARY KEY, email text);
			CREATE INDEX ON users (email);
		`,
	}

	t.Run("applies statements in order and records success", func(t *testing.T) {
		session := &mockSession{}

		require.NoError(t, newExecutor(session).Execute(context.Background(), migration))

		// Two statements, then the journal insert.
		require.Len(t, session.execs, 3)
		assert.Equal(t, "CREATE TABLE users (id uuid PRIMARY KEY, email text)", session.execs[0])
		assert.Equal(t, "CREATE INDEX ON users (email)", session.execs[1])
		assert.Contains(t, session.execs[2], "INSERT INTO schema_migration")
		assert.Equal(t, true, session.execValues[2][0])

		// Schema agreement verified after each statement, not the insert.
		assert.Equal(t, 2, session.agreements)
	})

	t.Run("statement failure abandons the rest and records failure", func(t *testing.T) {
		session := &mockSession{
			execFunc: func(_ context.Context, stmt string, _ ...any) error {
				if strings.HasPrefix(stmt, "CREATE INDEX") {
					return errors.New("index already exists")
				}
				return nil
			},
		}

		err := newExecutor(session).Execute(context.Background(), migration)
		require.Error(t, err)

		var failure *migrator.MigrationFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, "0001_users.cql", failure.ScriptName)
		assert.Equal(t, "CREATE INDEX ON users (email)", failure.Statement)
		assert.Contains(t, failure.Err.Error(), "index already exists")
		assert.Contains(t, err.Error(), "error during migration of script 0001_users.cql")

		// Failed statement is still followed by exactly one failure record.
		last := session.execs[len(session.execs)-1]
		assert.Contains(t, last, "INSERT INTO schema_migration")
		assert.Equal(t, false, session.execValues[len(session.execValues)-1][0])
	})

	t.Run("schema agreement timeout fails the statement", func(t *testing.T) {
		session := &mockSession{
			agreementFunc: func(context.Context) error {
				return errors.New("gocql: cluster schema versions not consistent")
			},
		}

		err := newExecutor(session).Execute(context.Background(), migration)
		require.Error(t, err)

		var failure *migrator.MigrationFailure
		require.ErrorAs(t, err, &failure)
		assert.ErrorIs(t, err, migrator.ErrSchemaAgreementTimeout)
		assert.Equal(t, "CREATE TABLE users (id uuid PRIMARY KEY, email text)", failure.Statement)

		// Only the first statement ran; the second was abandoned.
		require.Len(t, session.execs, 2) // statement + failure record
		assert.Contains(t, session.execs[1], "INSERT INTO schema_migration")
	})

	t.Run("empty script records an immediate success", func(t *testing.T) {
		session := &mockSession{}
		empty := &migrator.Migration{
			Version: 2,
			Name:    "0002_noop.cql",
			Script:  "-- nothing to do here\n",
		}

		require.NoError(t, newExecutor(session).Execute(context.Background(), empty))

		require.Len(t, session.execs, 1)
		assert.Contains(t, session.execs[0], "INSERT INTO schema_migration")
		assert.Equal(t, true, session.execValues[0][0])
		assert.Equal(t, 0, session.agreements)
	})

	t.Run("journal failure on success path propagates raw", func(t *testing.T) {
		session := &mockSession{
			execFunc: func(_ context.Context, stmt string, _ ...any) error {
				if strings.HasPrefix(stmt, "INSERT INTO schema_migration") {
					return errors.New("write timeout")
				}
				return nil
			},
		}

		err := newExecutor(session).Execute(context.Background(), migration)
		require.Error(t, err)

		var failure *migrator.MigrationFailure
		assert.False(t, errors.As(err, &failure), "journal errors are not migration failures")
	})
}
