package migrator

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSchemaAgreementTimeout indicates a statement was applied but the
// cluster did not converge on a single schema version within the driver's
// configured wait window. The statement's migration is treated as failed;
// remaining statements in the script are abandoned.
var ErrSchemaAgreementTimeout = errors.New("schema agreement not reached within the configured wait window")

// MigrationFailure reports that a statement in a migration script raised
// an error or failed to reach schema agreement. It carries the script
// name and the exact failing statement so callers can branch on the
// fields rather than parse a formatted message.
type MigrationFailure struct {
	// ScriptName identifies the migration script that failed.
	ScriptName string

	// Statement is the text of the statement that failed.
	Statement string

	// Err is the underlying cause.
	Err error
}

func (e *MigrationFailure) Error() string {
	return fmt.Sprintf("error during migration of script %s while executing '%s': %v", e.ScriptName, e.Statement, e.Err)
}

func (e *MigrationFailure) Unwrap() error { return e.Err }
