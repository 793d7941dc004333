package auth

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
	"time"
)

// tokenDriver replays canned refresh_tokens rows.
type tokenDriver struct {
	cols []string
	rows [][]driver.Value
}

func (d *tokenDriver) Open(string) (driver.Conn, error) { return &tokenConn{d: d}, nil }

type tokenConn struct{ d *tokenDriver }

func (c *tokenConn) Prepare(string) (driver.Stmt, error) { return &tokenStmt{d: c.d}, nil }
func (c *tokenConn) Close() error                        { return nil }
func (c *tokenConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

type tokenStmt struct{ d *tokenDriver }

func (s *tokenStmt) Close() error  { return nil }
func (s *tokenStmt) NumInput() int { return -1 }
func (s *tokenStmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, errors.New("not supported")
}
func (s *tokenStmt) Query(args []driver.Value) (driver.Rows, error) {
	// the first bind arg is the token being looked up
	var want string
	if len(args) > 0 {
		want, _ = args[0].(string)
	}
	out := &tokenRows{cols: s.d.cols}
	for _, row := range s.d.rows {
		if tok, _ := row[1].(string); tok == want {
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

type tokenRows struct {
	cols []string
	rows [][]driver.Value
	pos  int
}

func (r *tokenRows) Columns() []string { return r.cols }
func (r *tokenRows) Close() error      { return nil }
func (r *tokenRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

func init() {
	sql.Register("tokenfake", &tokenDriver{
		cols: []string{"device_id", "token", "expires_at", "revoked"},
		rows: [][]driver.Value{
			{"device-1", "live-token", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), false},
			{"device-2", "revoked-token", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), true},
		},
	})
}

func TestGetRefreshToken(t *testing.T) {
	db, err := sql.Open("tokenfake", "")
	if err != nil {
		t.Fatalf("open fake db: %v", err)
	}
	defer db.Close()
	repo := NewRepository(db)

	rt, err := repo.GetRefreshToken(context.Background(), "live-token")
	if err != nil {
		t.Fatalf("GetRefreshToken() failed: %v", err)
	}
	if rt == nil {
		t.Fatalf("stored token should be found")
	}
	if rt.DeviceID != "device-1" || rt.Revoked {
		t.Errorf("token = %+v", rt)
	}

	rt, err = repo.GetRefreshToken(context.Background(), "revoked-token")
	if err != nil {
		t.Fatalf("GetRefreshToken() failed: %v", err)
	}
	if rt == nil || !rt.Revoked {
		t.Errorf("revoked flag should survive the round trip, got %+v", rt)
	}
}

func TestGetRefreshTokenMissing(t *testing.T) {
	db, err := sql.Open("tokenfake", "")
	if err != nil {
		t.Fatalf("open fake db: %v", err)
	}
	defer db.Close()

	rt, err := NewRepository(db).GetRefreshToken(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("GetRefreshToken() failed: %v", err)
	}
	if rt != nil {
		t.Errorf("unknown token should return nil, got %+v", rt)
	}
}
