package db

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/puddle/v2"
)

type leaseState uint8

const (
	leaseActive leaseState = iota
	leaseReleased
	leaseRevoked
)

// Lease is exclusive ownership of one pooled connection.
// Every Lease must be released exactly once; extra Release calls are no-ops.
type Lease struct {
	pool     *Pool
	res      *puddle.Resource[*pooledConn]
	pc       *pooledConn
	leasedAt time.Time

	mu     sync.Mutex
	state  leaseState
	broken bool

	// inUse counts statements running on the connection. A revoked lease
	// with statements still running closes the connection when the last
	// one returns.
	inUse        int
	closePending bool
}

// ID identifies the underlying connection. It is stable across leases of the
// same connection.
func (l *Lease) ID() string { return l.pc.id }

// MarkBroken flags the connection so Release discards it instead of
// returning it to the idle set.
func (l *Lease) MarkBroken() {
	l.mu.Lock()
	l.broken = true
	l.mu.Unlock()
}

// Broken reports whether MarkBroken was called.
func (l *Lease) Broken() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.broken
}

// Release gives the connection back to the pool, or discards it when broken.
func (l *Lease) Release() {
	l.mu.Lock()
	if l.state != leaseActive {
		l.mu.Unlock()
		return
	}
	l.state = leaseReleased
	discard := l.broken || l.pc.conn.IsClosed()
	l.mu.Unlock()

	l.pool.untrack(l)
	if discard {
		l.pool.log.Warn("discarding broken connection", "conn_id", l.pc.id)
		l.res.Destroy()
		return
	}
	l.res.Release()
}

// revoke takes the connection away from its holder. The connection is closed
// right away when idle, otherwise by the statement still running on it, since
// a backend connection must not be closed concurrently with a query.
func (l *Lease) revoke() bool {
	l.mu.Lock()
	if l.state != leaseActive {
		l.mu.Unlock()
		return false
	}
	l.state = leaseRevoked
	busy := l.inUse > 0
	l.closePending = busy
	l.mu.Unlock()

	l.pool.log.Warn("revoking connection lease",
		"conn_id", l.pc.id,
		"held", time.Since(l.leasedAt),
		"busy", busy,
	)
	l.pool.untrack(l)
	l.res.Hijack()
	if !busy {
		l.pool.close(l.pc)
	}
	return true
}

// conn hands out the connection for one statement. done must be called when
// the statement returns.
func (l *Lease) conn() (Conn, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != leaseActive {
		return nil, nil, ErrLeaseReleased
	}
	l.inUse++
	return l.pc.conn, l.statementDone, nil
}

func (l *Lease) statementDone() {
	l.mu.Lock()
	l.inUse--
	closeNow := l.closePending && l.inUse == 0
	if closeNow {
		l.closePending = false
	}
	l.mu.Unlock()

	if closeNow {
		l.pool.close(l.pc)
	}
}

// bind derives a context for one statement. It is cancelled when the pool
// forces shutdown.
func (l *Lease) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(l.pool.forceCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
