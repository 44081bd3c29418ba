package catalogue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("connection pool is closed")

// ConnectionPool hands out storage connections one holder at a time.
type ConnectionPool interface {
	// Acquire blocks until a connection is free or ctx is done.
	Acquire(ctx context.Context) (*Handle, error)
	Size() int
	Close() error
}

// Handle is an acquired connection. Release returns it to the pool.
type Handle struct {
	conn    *sql.Conn
	pool    *Pool
	release sync.Once
}

// Conn returns the underlying connection.
func (h *Handle) Conn() *sql.Conn { return h.conn }

// Release returns the connection to the back of the pool. Calling it more
// than once has no effect.
func (h *Handle) Release() {
	h.release.Do(func() {
		h.pool.put(h.conn)
	})
}

// Pool is a bounded FIFO pool of connections taken from a *sql.DB.
type Pool struct {
	size    int
	handles chan *sql.Conn

	mu     sync.Mutex
	closed bool
}

// NewPool pins size connections of db.
func NewPool(ctx context.Context, db *sql.DB, size int) (*Pool, error) {
	if size < 1 {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("pool size must be >= 1, got %d", size), nil)
	}
	p := &Pool{size: size, handles: make(chan *sql.Conn, size)}
	for i := 0; i < size; i++ {
		conn, err := db.Conn(ctx)
		if err != nil {
			p.Close()
			return nil, apperrors.NewStorageFailure("failed to open pooled connection", err)
		}
		p.handles <- conn
	}
	return p, nil
}

// NewSinglePool is a pool of one connection: every holder is the only writer.
func NewSinglePool(ctx context.Context, db *sql.DB) (*Pool, error) {
	return NewPool(ctx, db, 1)
}

func (p *Pool) Size() int { return p.size }

func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	select {
	case conn, ok := <-p.handles:
		if !ok {
			return nil, apperrors.NewStorageFailure("acquire connection", ErrPoolClosed)
		}
		return &Handle{conn: conn, pool: p}, nil
	case <-ctx.Done():
		return nil, apperrors.NewStorageFailure("acquire connection", ctx.Err())
	}
}

func (p *Pool) put(conn *sql.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		conn.Close()
		return
	}
	// capacity equals size, so this never blocks
	p.handles <- conn
}

// Close closes idle connections now and held connections on release.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.handles)

	var errs []error
	for conn := range p.handles {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
