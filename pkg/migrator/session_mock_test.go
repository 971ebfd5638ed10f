package migrator_test

import (
	"context"
	"time"

	"github.com/caretaker-db/caretaker/pkg/cassandra"
)

// mockSession implements migrator.Session for unit tests. Each method
// records the statements it saw and defers to an optional func field so
// individual tests can script behavior.
type mockSession struct {
	execFunc      func(ctx context.Context, stmt string, values ...any) error
	execCASFunc   func(ctx context.Context, stmt string, values ...any) (bool, error)
	scanFunc      func(ctx context.Context, stmt string, dest ...any) error
	iterFunc      func(ctx context.Context, stmt string, values ...any) cassandra.Rows
	agreementFunc func(ctx context.Context) error

	execs      []string
	execValues [][]any
	casStmts   []string
	casValues  [][]any
	scans      []string
	agreements int
	closed     int
}

func (m *mockSession) Exec(ctx context.Context, stmt string, values ...any) error {
	m.execs = append(m.execs, stmt)
	m.execValues = append(m.execValues, values)
	if m.execFunc != nil {
		return m.execFunc(ctx, stmt, values...)
	}
	return nil
}

func (m *mockSession) ExecCAS(ctx context.Context, stmt string, values ...any) (bool, error) {
	m.casStmts = append(m.casStmts, stmt)
	m.casValues = append(m.casValues, values)
	if m.execCASFunc != nil {
		return m.execCASFunc(ctx, stmt, values...)
	}
	return true, nil
}

func (m *mockSession) Scan(ctx context.Context, stmt string, dest ...any) error {
	m.scans = append(m.scans, stmt)
	if m.scanFunc != nil {
		return m.scanFunc(ctx, stmt, dest...)
	}
	return cassandra.ErrNotFound
}

func (m *mockSession) Iter(ctx context.Context, stmt string, values ...any) cassandra.Rows {
	if m.iterFunc != nil {
		return m.iterFunc(ctx, stmt, values...)
	}
	return &mockRows{}
}

func (m *mockSession) AwaitSchemaAgreement(ctx context.Context) error {
	m.agreements++
	if m.agreementFunc != nil {
		return m.agreementFunc(ctx)
	}
	return nil
}

func (m *mockSession) Close() {
	m.closed++
}

// mockRows feeds pre-canned rows into Scan. Each row's values are
// assigned to the scan destinations in order.
type mockRows struct {
	rows    [][]any
	next    int
	scanErr error
	closed  bool
}

func (m *mockRows) Scan(dest ...any) bool {
	if m.next >= len(m.rows) {
		return false
	}

	row := m.rows[m.next]
	m.next++

	for i, v := range row {
		if i >= len(dest) {
			break
		}
		assign(dest[i], v)
	}
	return true
}

func (m *mockRows) Close() error {
	m.closed = true
	return m.scanErr
}

func assign(dest, value any) {
	switch d := dest.(type) {
	case *bool:
		*d = value.(bool)
	case *int64:
		*d = value.(int64)
	case *string:
		*d = value.(string)
	case *time.Time:
		*d = value.(time.Time)
	}
}

// scanVersion returns a scanFunc that reports the given current version.
func scanVersion(version int64) func(ctx context.Context, stmt string, dest ...any) error {
	return func(_ context.Context, _ string, dest ...any) error {
		*(dest[0].(*int64)) = version
		return nil
	}
}
