package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                    { return nil }
func (nopStmt) NumInput() int                                   { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

// flakyDriver fails the first failPings pings across all its connections.
type flakyDriver struct {
	pings     *atomic.Int32
	failPings int32
}

func (d flakyDriver) Open(name string) (driver.Conn, error) {
	return flakyConn{d: d}, nil
}

type flakyConn struct {
	nopConn
	d flakyDriver
}

func (c flakyConn) Ping(ctx context.Context) error {
	if c.d.pings.Add(1) <= c.d.failPings {
		return errors.New("database system is starting up")
	}
	return nil
}

var (
	registerTestDriverOnce sync.Once
	flakyPings             atomic.Int32
)

func ensureTestDriverRegistered() {
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
		sql.Register("dbflaky", flakyDriver{pings: &flakyPings, failPings: 2})
	})
}

func withTestDriver(t *testing.T) func() {
	t.Helper()
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	return func() {
		openDB = prev
	}
}

func resetSingleton() {
	singletonMu.Lock()
	singletonDB = nil
	singletonMu.Unlock()
}

func TestGetSingletonReturnsSamePointer(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	resetSingleton()

	db1, err := GetSingleton(context.Background(), "ignored", DefaultWorkerOptions())
	if err != nil {
		t.Fatalf("GetSingleton first: %v", err)
	}
	db2, err := GetSingleton(context.Background(), "ignored", DefaultWorkerOptions())
	if err != nil {
		t.Fatalf("GetSingleton second: %v", err)
	}
	if db1 != db2 {
		t.Fatalf("expected singleton pointers to match")
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")
	t.Setenv("DB_STATEMENT_TIMEOUT", "2s")
	t.Setenv("DB_APPLICATION_NAME", "checker-test")

	opts := OptionsFromEnv(DefaultServerOptions())
	db, err := Connect(context.Background(), "ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", opts.ConnMaxIdleTime)
	}
	if opts.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", opts.PingTimeout)
	}
	if opts.StatementTimeout != 2*time.Second || opts.ApplicationName != "checker-test" {
		t.Fatalf("expected session overrides, got %+v", opts)
	}
}

func TestGetSingletonRetriesAfterFailure(t *testing.T) {
	var calls int32
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, driver.ErrBadConn
		}
		ensureTestDriverRegistered()
		return sql.Open("dbtest", dsn)
	}
	defer func() {
		openDB = prev
	}()
	ensureTestDriverRegistered()

	resetSingleton()

	_, err := GetSingleton(context.Background(), "ignored", DefaultWorkerOptions())
	if err == nil {
		t.Fatalf("expected first call to fail")
	}
	db2, err := GetSingleton(context.Background(), "ignored", DefaultWorkerOptions())
	if err != nil {
		t.Fatalf("expected second call to succeed: %v", err)
	}
	if db2 == nil {
		t.Fatalf("expected db after retry")
	}
}

func TestConnectRetriesPing(t *testing.T) {
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbflaky", dsn)
	}
	defer func() { openDB = prev }()

	opts := DefaultWorkerOptions()
	opts.RetryDelay = time.Millisecond

	flakyPings.Store(0)
	opts.ConnectAttempts = 2
	if _, err := Connect(context.Background(), "ignored", opts); err == nil {
		t.Fatalf("expected failure with two attempts")
	}

	flakyPings.Store(0)
	opts.ConnectAttempts = 3
	db, err := Connect(context.Background(), "ignored", opts)
	if err != nil {
		t.Fatalf("expected success on third ping: %v", err)
	}
	db.Close()
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "  ", DefaultServerOptions()); err == nil {
		t.Fatalf("expected error for empty DATABASE_URL")
	}
}

func TestWithRuntimeParams(t *testing.T) {
	opts := Options{ApplicationName: "aichecker-api", StatementTimeout: 10 * time.Second}

	tests := []struct {
		name string
		dsn  string
		opts Options
		want string
	}{
		{
			name: "url",
			dsn:  "postgres://u:p@localhost:5432/checker?sslmode=disable",
			opts: opts,
			want: "postgres://u:p@localhost:5432/checker?application_name=aichecker-api&sslmode=disable&statement_timeout=10000",
		},
		{
			name: "url keeps explicit value",
			dsn:  "postgresql://localhost/checker?application_name=custom",
			opts: opts,
			want: "postgresql://localhost/checker?application_name=custom&statement_timeout=10000",
		},
		{
			name: "keyword dsn",
			dsn:  "host=localhost dbname=checker",
			opts: opts,
			want: "host=localhost dbname=checker application_name=aichecker-api statement_timeout=10000",
		},
		{
			name: "nothing to add",
			dsn:  "host=localhost",
			opts: Options{},
			want: "host=localhost",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withRuntimeParams(tt.dsn, tt.opts); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
