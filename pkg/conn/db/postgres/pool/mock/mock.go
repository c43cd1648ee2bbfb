package mock

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	pgproto3 "github.com/jackc/pgproto3/v2"
	"github.com/jackc/pgx/v4"

	kpool "github.com/cardops/shiplane/pkg/conn/db/postgres/pool"
)

// MockPool fakes kpool.Pool.
//
// Set behaviours on Impl and spy invocations on Called.
type MockPool struct {
	Impl struct {
		Begin    func(ctx context.Context) (kpool.Tx, error)
		Exec     func(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
		Query    func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
		QueryRow func(ctx context.Context, sql string, args ...interface{}) pgx.Row
		Ping     func(ctx context.Context) error
	}
	Called struct {
		Begin    uint64
		Exec     uint64
		Query    uint64
		QueryRow uint64
		Ping     uint64
	}
}

func NewMockPool() *MockPool {
	return &MockPool{}
}

var _ kpool.Pool = &MockPool{}

func (m *MockPool) Begin(ctx context.Context) (kpool.Tx, error) {
	m.Called.Begin += 1
	if m.Impl.Begin == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Begin(ctx)
}

func (m *MockPool) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	m.Called.Exec += 1
	if m.Impl.Exec == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Exec(ctx, sql, arguments...)
}

func (m *MockPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	m.Called.Query += 1
	if m.Impl.Query == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Query(ctx, sql, args...)
}

func (m *MockPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	m.Called.QueryRow += 1
	if m.Impl.QueryRow == nil {
		return &MockRow{}
	}
	return m.Impl.QueryRow(ctx, sql, args...)
}

func (m *MockPool) Ping(ctx context.Context) error {
	m.Called.Ping += 1
	if m.Impl.Ping == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Ping(ctx)
}

// MockTx fakes kpool.Tx.
type MockTx struct {
	Impl struct {
		Begin    func(ctx context.Context) (kpool.Tx, error)
		Commit   func(ctx context.Context) error
		Rollback func(ctx context.Context) error
		Exec     func(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
		Query    func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
		QueryRow func(ctx context.Context, sql string, args ...interface{}) pgx.Row
	}
	Called struct {
		Begin    uint64
		Commit   uint64
		Rollback uint64
		Exec     uint64
		Query    uint64
		QueryRow uint64
	}
}

func NewMockTx() *MockTx {
	return &MockTx{}
}

var _ kpool.Tx = &MockTx{}

func (m *MockTx) Begin(ctx context.Context) (kpool.Tx, error) {
	m.Called.Begin += 1
	if m.Impl.Begin == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Begin(ctx)
}

func (m *MockTx) Commit(ctx context.Context) error {
	m.Called.Commit += 1
	if m.Impl.Commit == nil {
		// committing is the normal end of a mocked transaction.
		return nil
	}
	return m.Impl.Commit(ctx)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	m.Called.Rollback += 1
	if m.Impl.Rollback == nil {
		// rolling back after commit is a no-op, like pgx behaves.
		return nil
	}
	return m.Impl.Rollback(ctx)
}

func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	m.Called.Exec += 1
	if m.Impl.Exec == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Exec(ctx, sql, arguments...)
}

func (m *MockTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	m.Called.Query += 1
	if m.Impl.Query == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Query(ctx, sql, args...)
}

func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	m.Called.QueryRow += 1
	if m.Impl.QueryRow == nil {
		return &MockRow{}
	}
	return m.Impl.QueryRow(ctx, sql, args...)
}

// MockRow fakes pgx.Row. Scan with no Impl reports pgx.ErrNoRows.
type MockRow struct {
	Impl struct {
		Scan func(dest ...interface{}) error
	}
	Called struct {
		Scan uint64
	}
}

var _ pgx.Row = &MockRow{}

func (m *MockRow) Scan(dest ...interface{}) error {
	m.Called.Scan += 1
	if m.Impl.Scan == nil {
		return pgx.ErrNoRows
	}
	return m.Impl.Scan(dest...)
}

// MockRows fakes pgx.Rows for iteration. Next and Scan come from Impl,
// the rest of the interface is inert.
type MockRows struct {
	Impl struct {
		Next  func() bool
		Scan  func(dest ...interface{}) error
		Err   func() error
		Close func()
	}
	Called struct {
		Next  uint64
		Scan  uint64
		Err   uint64
		Close uint64
	}
}

var _ pgx.Rows = &MockRows{}

func (m *MockRows) Next() bool {
	m.Called.Next += 1
	if m.Impl.Next == nil {
		return false
	}
	return m.Impl.Next()
}

func (m *MockRows) Scan(dest ...interface{}) error {
	m.Called.Scan += 1
	if m.Impl.Scan == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Scan(dest...)
}

func (m *MockRows) Err() error {
	m.Called.Err += 1
	if m.Impl.Err == nil {
		return nil
	}
	return m.Impl.Err()
}

func (m *MockRows) Close() {
	m.Called.Close += 1
	if m.Impl.Close != nil {
		m.Impl.Close()
	}
}

func (m *MockRows) CommandTag() pgconn.CommandTag {
	return nil
}

func (m *MockRows) FieldDescriptions() []pgproto3.FieldDescription {
	return nil
}

func (m *MockRows) Values() ([]interface{}, error) {
	return nil, errors.New("[MOCK] not implemented")
}

func (m *MockRows) RawValues() [][]byte {
	return nil
}
