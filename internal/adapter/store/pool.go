package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rmoralesv/go-app-monitor/internal/port"
)

// Pool owns a fixed number of live database handles. Each handle is
// borrowed by exactly one in-flight operation at a time and returned on
// every exit path via With.
type Pool struct {
	db             *sql.DB
	handles        chan *sql.Conn
	size           int
	acquireTimeout time.Duration
}

// NewPool opens size connections from db, runs setup on each (connection
// pragmas, session settings), and returns the pool. The pool takes
// ownership of db.
func NewPool(ctx context.Context, db *sql.DB, size int, acquireTimeout time.Duration, setup func(context.Context, *sql.Conn) error) (*Pool, error) {
	// Every connection the pool hands out must be one of these; keep
	// database/sql from opening extras behind our back.
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	db.SetConnMaxLifetime(0)

	p := &Pool{
		db:             db,
		handles:        make(chan *sql.Conn, size),
		size:           size,
		acquireTimeout: acquireTimeout,
	}

	for i := 0; i < size; i++ {
		conn, err := db.Conn(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("open pooled connection %d: %w", i, err)
		}
		if setup != nil {
			if err := setup(ctx, conn); err != nil {
				conn.Close()
				p.Close()
				return nil, fmt.Errorf("configure pooled connection %d: %w", i, err)
			}
		}
		p.handles <- conn
	}
	return p, nil
}

// Acquire borrows a handle, waiting up to the acquire timeout when the
// pool is exhausted. Fails with port.ErrPoolExhausted once the timeout
// elapses rather than blocking forever.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	select {
	case conn := <-p.handles:
		return conn, nil
	default:
	}

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case conn := <-p.handles:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, port.ErrPoolExhausted
	}
}

// Release returns a handle to the pool unconditionally.
func (p *Pool) Release(conn *sql.Conn) {
	p.handles <- conn
}

// With runs fn with a borrowed handle. The handle is released even when
// fn fails or panics.
func (p *Pool) With(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn)
}

// Size returns the fixed pool size.
func (p *Pool) Size() int {
	return p.size
}

// Close tears down all idle handles and the underlying database. Intended
// for process shutdown, after in-flight operations have drained.
func (p *Pool) Close() error {
	for i := 0; i < p.size; i++ {
		select {
		case conn := <-p.handles:
			conn.Close()
		default:
		}
	}
	return p.db.Close()
}
