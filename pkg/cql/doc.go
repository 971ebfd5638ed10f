// Package cql splits raw CQL migration scripts into individually
// executable statements.
//
// Cassandra has no server-side notion of a multi-statement script, so a
// migration file must be cut into single statements client-side before
// execution. The splitter understands just enough CQL lexical structure
// to do this safely: semicolons inside quoted string literals, quoted
// identifiers, line comments ("--" or "//") and block comments are never
// treated as statement terminators.
//
// Splitting is pure and deterministic. It performs no I/O and carries no
// state, so a script can be re-split freely when an execution attempt is
// retried from the top.
//
// Example usage:
//
//	stmts, err := cql.Split(`
//	    CREATE TABLE users (id uuid PRIMARY KEY, bio text);
//	    INSERT INTO users (id, bio) VALUES (uuid(), 'likes; semicolons');
//	`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// stmts has two entries; the quoted semicolon did not split.
package cql
