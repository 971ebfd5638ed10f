// Package migrator applies ordered schema-change scripts to a Cassandra
// keyspace exactly once per script and records every attempt in a
// durable journal table.
//
// The engine is built from small collaborating pieces:
//
//   - Migration: a versioned, named unit of CQL script text
//   - Repository: supplies migrations in ascending version order
//   - Journal: the schema_migration log table; defines the current
//     version as the highest successfully applied one
//   - LeaseCoordinator: a conditional-write (LWT) lease so that only one
//     process migrates at a time when consensus mode is enabled
//   - Executor: runs one migration statement-by-statement, verifying
//     cluster-wide schema agreement after each statement
//   - Task: the top-level controller driving all of the above
//
// Scripts are applied with statement-level atomicity only. Cassandra has
// no multi-statement transactions, so a script that fails partway leaves
// its applied prefix in place; no rollback is attempted. Operators are
// expected to write forward-only, idempotent-safe statements.
//
// Example usage:
//
//	client, err := cassandra.Connect(cassandra.Options{
//	    Hosts:    []string{"localhost:9042"},
//	    Keyspace: "app",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	repo, err := migrator.LoadDir(os.DirFS("db/migrations"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	task := migrator.NewTask(migrator.TaskConfig{
//	    Session:    client,
//	    Repository: repo,
//	    Consensus:  true,
//	})
//
//	// Migrate closes the session when it returns, on every path.
//	if err := task.Migrate(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package migrator
