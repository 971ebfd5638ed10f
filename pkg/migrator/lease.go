package migrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// leaseTable holds the single lease row; prefixed like the journal.
	leaseTable = "schema_migration_lease"

	// leaseName is the well-known key of the one lease row.
	leaseName = "lead"

	// DefaultLeaseTTL bounds how long a crashed holder can block other
	// processes. The row expires server-side via USING TTL, so no
	// heartbeat or janitor is needed.
	DefaultLeaseTTL = 5 * time.Minute
)

// LeaseCoordinator implements distributed mutual exclusion over a single
// row written with a lightweight transaction. It is a cooperative,
// best-effort mutex reusing Cassandra's conditional-write primitive
// rather than a separate lock service: the insert only succeeds while no
// live claim exists, and the claim expires after the configured TTL.
//
// A coordinator is owned by one process; Owner identifies it in the lease
// row so Release can clear only its own claim.
type LeaseCoordinator struct {
	session Session
	table   string
	owner   string
	ttl     time.Duration
	held    bool
}

// NewLeaseCoordinator creates a coordinator with a fresh random owner id.
// A non-positive ttl falls back to DefaultLeaseTTL.
func NewLeaseCoordinator(session Session, tablePrefix string, ttl time.Duration) *LeaseCoordinator {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &LeaseCoordinator{
		session: session,
		table:   prefixed(tablePrefix, leaseTable),
		owner:   uuid.NewString(),
		ttl:     ttl,
	}
}

// Owner returns this coordinator's identity as written into the lease row.
func (l *LeaseCoordinator) Owner() string { return l.owner }

// Table returns the coordinator's fully prefixed table name.
func (l *LeaseCoordinator) Table() string { return l.table }

// EnsureSchema creates the lease table if absent. Idempotent.
func (l *LeaseCoordinator) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (`+
			`name text, `+
			`owner text, `+
			`target_version bigint, `+
			`acquired_at timestamp, `+
			`PRIMARY KEY (name))`,
		l.table,
	)

	if err := l.session.Exec(ctx, stmt); err != nil {
		return errors.Wrapf(err, "failed to create %s table", l.table)
	}
	if err := l.session.AwaitSchemaAgreement(ctx); err != nil {
		return errors.Wrapf(ErrSchemaAgreementTimeout, "after creating %s: %v", l.table, err)
	}
	return nil
}

// TryAcquire makes a single attempt to claim the lease for the given
// target version. It returns true when this process now holds the lease
// and false when another owner has a live claim. A false return is a
// normal outcome, not an error; callers that need blocking semantics must
// poll with their own backoff.
func (l *LeaseCoordinator) TryAcquire(ctx context.Context, targetVersion int64) (bool, error) {
	stmt := fmt.Sprintf(
		"INSERT INTO %s (name, owner, target_version, acquired_at) VALUES (?, ?, ?, ?) IF NOT EXISTS USING TTL ?",
		l.table,
	)

	applied, err := l.session.ExecCAS(ctx, stmt,
		leaseName, l.owner, targetVersion, time.Now().UTC(), int(l.ttl.Seconds()))
	if err != nil {
		return false, errors.Wrap(err, "failed to acquire migration lease")
	}

	l.held = applied
	return applied, nil
}

// Release clears the lease if this process holds it; a no-op otherwise.
// The delete is conditional on the owner so a claim that already expired
// and was re-acquired by another process is left untouched.
func (l *LeaseCoordinator) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	l.held = false

	stmt := fmt.Sprintf("DELETE FROM %s WHERE name = ? IF owner = ?", l.table)
	if _, err := l.session.ExecCAS(ctx, stmt, leaseName, l.owner); err != nil {
		return errors.Wrap(err, "failed to release migration lease")
	}
	return nil
}

// Held reports whether this coordinator currently believes it holds the
// lease. The claim may have expired server-side; Held only tracks the
// local acquire/release state.
func (l *LeaseCoordinator) Held() bool { return l.held }
