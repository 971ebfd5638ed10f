package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
)

type (
	// Session is the narrow surface of a Cassandra session that the
	// migration engine depends on. *Client implements it; tests supply
	// mocks.
	Session interface {
		// Exec runs a single statement at the configured consistency level.
		Exec(ctx context.Context, stmt string, values ...any) error

		// ExecCAS runs a conditional (lightweight transaction) statement and
		// reports whether it was applied.
		ExecCAS(ctx context.Context, stmt string, values ...any) (bool, error)

		// Scan runs a statement expected to return at most one row and scans
		// it into dest. Returns ErrNotFound when the result set is empty.
		Scan(ctx context.Context, stmt string, dest ...any) error

		// Iter runs a statement and returns a row iterator.
		Iter(ctx context.Context, stmt string, values ...any) Rows

		// AwaitSchemaAgreement blocks until all reachable nodes report the
		// same schema version, or the driver's wait window elapses.
		AwaitSchemaAgreement(ctx context.Context) error

		// Close releases the underlying session. Safe to call once only.
		Close()
	}

	// Rows iterates a result set. Scan returns false once the set is
	// exhausted; Close reports any error encountered while iterating.
	Rows interface {
		Scan(dest ...any) bool
		Close() error
	}

	// Options configures a connection to a Cassandra cluster.
	Options struct {
		// Hosts are the contact points, "host" or "host:port".
		Hosts []string

		// Keyspace scopes the session. Required; the keyspace must already
		// exist (provisioning is the host application's concern).
		Keyspace string

		// Consistency is the level applied to every statement run through
		// the session ("any", "one", "quorum", "all", ...). Defaults to
		// "quorum" when empty.
		Consistency string

		// Timeout bounds individual queries. Zero keeps the driver default.
		Timeout time.Duration

		// ConnectTimeout bounds the initial dial. Zero keeps the driver default.
		ConnectTimeout time.Duration

		// MaxSchemaAgreementWait bounds how long schema-convergence checks
		// wait before giving up. Zero keeps the driver default (60s).
		MaxSchemaAgreementWait time.Duration

		// CAFile, CertFile and KeyFile enable TLS when set. CertFile and
		// KeyFile must be provided together for mTLS.
		CAFile   string
		CertFile string
		KeyFile  string

		// HostVerification enables server certificate hostname checks.
		HostVerification bool
	}

	// Client is a gocql-backed Session scoped to a single keyspace.
	Client struct {
		session     *gocql.Session
		keyspace    string
		consistency gocql.Consistency
	}
)

// ErrNotFound is returned by Scan when the query matched no rows.
var ErrNotFound = gocql.ErrNotFound

// StoreUnavailableError indicates the cluster could not be reached, either
// when establishing the session or because all connections were lost.
type StoreUnavailableError struct {
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("cassandra unavailable: %v", e.Cause)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Cause }

// Connect establishes a keyspace-scoped session against the cluster.
//
// Example:
//
//	client, err := cassandra.Connect(cassandra.Options{
//	    Hosts:    []string{"localhost:9042"},
//	    Keyspace: "app",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
func Connect(opts Options) (*Client, error) {
	if len(opts.Hosts) == 0 {
		return nil, errors.New("at least one contact point is required")
	}
	if opts.Keyspace == "" {
		return nil, errors.New("keyspace is required")
	}

	consistency := gocql.Quorum
	if opts.Consistency != "" {
		c, err := gocql.ParseConsistencyWrapper(opts.Consistency)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid consistency level: %s", opts.Consistency)
		}
		consistency = c
	}

	cluster := gocql.NewCluster(opts.Hosts...)
	cluster.Keyspace = opts.Keyspace
	cluster.Consistency = consistency
	if opts.Timeout > 0 {
		cluster.Timeout = opts.Timeout
	}
	if opts.ConnectTimeout > 0 {
		cluster.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.MaxSchemaAgreementWait > 0 {
		cluster.MaxWaitSchemaAgreement = opts.MaxSchemaAgreementWait
	}

	if opts.CAFile != "" || opts.CertFile != "" {
		tlsConfig, err := tlsConfigFor(opts)
		if err != nil {
			return nil, err
		}
		cluster.SslOpts = &gocql.SslOptions{
			Config:                 tlsConfig,
			EnableHostVerification: opts.HostVerification,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, &StoreUnavailableError{Cause: err}
	}

	return &Client{
		session:     session,
		keyspace:    opts.Keyspace,
		consistency: consistency,
	}, nil
}

// Keyspace returns the keyspace this session is scoped to.
func (c *Client) Keyspace() string { return c.keyspace }

// Consistency returns the level applied to statements run via this client.
func (c *Client) Consistency() gocql.Consistency { return c.consistency }

// Exec runs a single statement at the configured consistency level.
func (c *Client) Exec(ctx context.Context, stmt string, values ...any) error {
	err := c.session.Query(stmt, values...).
		WithContext(ctx).
		Consistency(c.consistency).
		Exec()
	return c.classify(err)
}

// ExecCAS runs a lightweight transaction and reports whether the
// conditional write was applied. The paxos phase always runs at SERIAL;
// the consistency level set here governs the learn phase.
func (c *Client) ExecCAS(ctx context.Context, stmt string, values ...any) (bool, error) {
	applied, err := c.session.Query(stmt, values...).
		WithContext(ctx).
		Consistency(c.consistency).
		MapScanCAS(make(map[string]any))
	if err != nil {
		return false, c.classify(err)
	}
	return applied, nil
}

// Scan runs a statement and scans the single resulting row into dest.
func (c *Client) Scan(ctx context.Context, stmt string, dest ...any) error {
	err := c.session.Query(stmt).
		WithContext(ctx).
		Consistency(c.consistency).
		Scan(dest...)
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	return c.classify(err)
}

// Iter runs a statement and returns the resulting row iterator.
func (c *Client) Iter(ctx context.Context, stmt string, values ...any) Rows {
	return c.session.Query(stmt, values...).
		WithContext(ctx).
		Consistency(c.consistency).
		Iter()
}

// AwaitSchemaAgreement waits for all reachable nodes to converge on the
// same schema version, bounded by MaxSchemaAgreementWait.
func (c *Client) AwaitSchemaAgreement(ctx context.Context) error {
	return c.session.AwaitSchemaAgreement(ctx)
}

// Close releases the underlying gocql session.
func (c *Client) Close() {
	c.session.Close()
}

// classify maps total connectivity loss onto StoreUnavailableError so
// callers can distinguish infrastructure failure from statement errors.
func (c *Client) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gocql.ErrNoConnections) || errors.Is(err, gocql.ErrSessionClosed) {
		return &StoreUnavailableError{Cause: err}
	}
	return err
}
