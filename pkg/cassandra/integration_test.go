package cassandra_test

import (
	"context"
	"os/exec"
	"testing"
	"testing/fstest"
	"time"

	"github.com/caretaker-db/caretaker/pkg/cassandra"
	"github.com/caretaker-db/caretaker/pkg/docker"
	"github.com/caretaker-db/caretaker/pkg/migrator"
	"github.com/stretchr/testify/require"
)

// skipIfNoDocker skips the test if Docker is not available
func skipIfNoDocker(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	cmd := exec.Command("docker", "ps")
	if err := cmd.Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}

func TestMigrateRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Docker tests in short mode")
	}
	skipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container := docker.NewWithOptions(docker.Options{
		Env: map[string]string{
			"HEAP_NEWSIZE":  "128M",
			"MAX_HEAP_SIZE": "1024M",
		},
	})
	require.NoError(t, container.Start(ctx), "Failed to start Cassandra container")
	defer func() {
		_ = container.Stop(ctx)
	}()

	host, err := container.ConnectionHost(ctx)
	require.NoError(t, err)

	// The engine expects the keyspace to exist; provision it out of band.
	admin, err := cassandra.Connect(cassandra.Options{
		Hosts:    []string{host},
		Keyspace: "system",
		Timeout:  10 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, admin.Exec(ctx, `CREATE KEYSPACE IF NOT EXISTS caretaker_test
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`))
	admin.Close()

	repo, err := migrator.LoadDir(fstest.MapFS{
		"0001_users.cql": {Data: []byte(`
			CREATE TABLE users (
				id uuid PRIMARY KEY,
				email text
			);
			CREATE INDEX ON users (email);
		`)},
		"0002_settings.cql": {Data: []byte(`
			CREATE TABLE settings (k text PRIMARY KEY, v text);
		`)},
	})
	require.NoError(t, err)

	client, err := cassandra.Connect(cassandra.Options{
		Hosts:    []string{host},
		Keyspace: "caretaker_test",
		Timeout:  10 * time.Second,
	})
	require.NoError(t, err)

	task := migrator.NewTask(migrator.TaskConfig{
		Session:    client, // closed by Migrate
		Repository: repo,
		Consensus:  true,
		Keyspace:   "caretaker_test",
	})
	require.NoError(t, task.Migrate(ctx))

	// Fresh session to inspect the outcome.
	verify, err := cassandra.Connect(cassandra.Options{
		Hosts:    []string{host},
		Keyspace: "caretaker_test",
		Timeout:  10 * time.Second,
	})
	require.NoError(t, err)
	defer verify.Close()

	journal := migrator.NewJournal(verify, "")
	version, err := journal.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)

	records, err := journal.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// The migrated tables exist and are usable.
	require.NoError(t, verify.Exec(ctx,
		"INSERT INTO settings (k, v) VALUES (?, ?)", "greeting", "hello"))

	var v string
	require.NoError(t, verify.Scan(ctx, "SELECT v FROM settings WHERE k = 'greeting'", &v))
	require.Equal(t, "hello", v)

	// Re-running against the same keyspace is a no-op.
	again, err := cassandra.Connect(cassandra.Options{
		Hosts:    []string{host},
		Keyspace: "caretaker_test",
		Timeout:  10 * time.Second,
	})
	require.NoError(t, err)

	task = migrator.NewTask(migrator.TaskConfig{
		Session:    again,
		Repository: repo,
		Keyspace:   "caretaker_test",
	})
	require.NoError(t, task.Migrate(ctx))

	records, err = journal.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2, "no new journal entries on an up-to-date keyspace")
}
