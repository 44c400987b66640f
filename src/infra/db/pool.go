package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/puddle/v2"

	"fluxocaixa/src/infra/logger"
)

const (
	defaultConnectionTimeout = 2 * time.Second
	defaultForceTimeout      = 2 * time.Second
	minReapInterval          = 10 * time.Millisecond
	closeConnTimeout         = 5 * time.Second
)

// PoolConfig configures a Pool.
type PoolConfig struct {
	// MaxSize is the upper bound on open connections, idle and leased together.
	MaxSize int32

	// IdleTimeout closes connections that stayed idle for longer. Zero keeps
	// idle connections open forever.
	IdleTimeout time.Duration

	// ConnectionTimeout bounds how long Lease waits for a connection.
	ConnectionTimeout time.Duration

	// ForceTimeout is how long Shutdown waits for holders to give their
	// connections back after in-flight statements were cancelled. Leases still
	// out after that are revoked.
	ForceTimeout time.Duration
}

// PoolStats is a point-in-time snapshot of the pool.
type PoolStats struct {
	Max                  int32
	Total                int32
	Idle                 int32
	Active               int32
	Constructing         int32
	AcquireCount         int64
	EmptyAcquireCount    int64
	CanceledAcquireCount int64
}

// Probe is the answer to VerifyConnectivity.
type Probe struct {
	Now     time.Time
	Version string
}

type pooledConn struct {
	id      string
	created time.Time
	conn    Conn
}

// Pool is a bounded set of backend connections.
// Connections are opened lazily up to MaxSize and handed out as Leases.
type Pool struct {
	res       *puddle.Pool[*pooledConn]
	connector Connector
	cfg       PoolConfig
	sink      Sink
	log       *slog.Logger

	mu     sync.Mutex
	leases map[*Lease]struct{}

	closing     atomic.Bool
	closingCtx  context.Context
	stopLeasing context.CancelFunc
	forceCtx    context.Context
	force       context.CancelFunc

	shutdownOnce sync.Once
	reaperDone   chan struct{}
	closed       chan struct{}
}

// NewPool creates a pool. No connection is opened until the first Lease.
func NewPool(connector Connector, cfg PoolConfig, sink Sink, log *slog.Logger) (*Pool, error) {
	if connector == nil {
		return nil, errors.New("db: connector is required")
	}
	if cfg.MaxSize < 1 {
		return nil, fmt.Errorf("db: pool max size must be at least 1, got %d", cfg.MaxSize)
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = defaultConnectionTimeout
	}
	if cfg.ForceTimeout <= 0 {
		cfg.ForceTimeout = defaultForceTimeout
	}
	if log == nil {
		log = logger.Discard()
	}

	p := &Pool{
		connector:  connector,
		cfg:        cfg,
		sink:       sinkOrNop(sink),
		log:        log.With("component", "db.pool"),
		leases:     make(map[*Lease]struct{}),
		reaperDone: make(chan struct{}),
		closed:     make(chan struct{}),
	}
	p.closingCtx, p.stopLeasing = context.WithCancel(context.Background())
	p.forceCtx, p.force = context.WithCancel(context.Background())

	res, err := puddle.NewPool(&puddle.Config[*pooledConn]{
		Constructor: p.open,
		Destructor:  p.close,
		MaxSize:     cfg.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("db: create pool: %w", err)
	}
	p.res = res

	if cfg.IdleTimeout > 0 {
		go p.reap(max(cfg.IdleTimeout/2, minReapInterval))
	} else {
		close(p.reaperDone)
	}

	return p, nil
}

func (p *Pool) open(ctx context.Context) (*pooledConn, error) {
	// puddle does not cancel construction when the acquirer gives up.
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectionTimeout)
	defer cancel()

	conn, err := p.connector.Connect(ctx)
	if err != nil {
		p.log.Warn("failed to open connection", "error", err)
		return nil, err
	}

	pc := &pooledConn{id: uuid.NewString(), created: time.Now(), conn: conn}
	p.log.Debug("connection opened", "conn_id", pc.id)
	return pc, nil
}

func (p *Pool) close(pc *pooledConn) {
	ctx, cancel := context.WithTimeout(context.Background(), closeConnTimeout)
	defer cancel()

	if err := pc.conn.Close(ctx); err != nil {
		p.log.Warn("failed to close connection", "conn_id", pc.id, "error", err)
		return
	}
	p.log.Debug("connection closed", "conn_id", pc.id, "age", time.Since(pc.created))
}

// Lease hands out a connection for exclusive use.
// It waits up to ConnectionTimeout, or the caller's deadline if earlier, and
// fails with ErrPoolExhausted when that passes. Once Shutdown has started it
// fails with ErrPoolUnavailable, including for callers already waiting.
func (p *Pool) Lease(ctx context.Context) (*Lease, error) {
	if p.closing.Load() {
		return nil, ErrPoolUnavailable
	}

	acquireCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectionTimeout)
	defer cancel()
	stop := context.AfterFunc(p.closingCtx, cancel)
	defer stop()

	res, err := p.res.Acquire(acquireCtx)
	if err != nil {
		return nil, p.acquireError(ctx, err)
	}

	l := &Lease{pool: p, res: res, pc: res.Value(), leasedAt: time.Now()}
	if !p.track(l) {
		res.Release()
		return nil, ErrPoolUnavailable
	}
	return l, nil
}

func (p *Pool) acquireError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, puddle.ErrClosedPool) || p.closing.Load():
		return ErrPoolUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: no connection within %s", ErrPoolExhausted, p.cfg.ConnectionTimeout)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %w", ErrConnectionBroken, err)
	}
}

func (p *Pool) track(l *Lease) bool {
	p.mu.Lock()
	if p.closing.Load() {
		p.mu.Unlock()
		return false
	}
	p.leases[l] = struct{}{}
	p.sink.SetActiveConnections(len(p.leases))
	p.mu.Unlock()
	return true
}

func (p *Pool) untrack(l *Lease) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.leases, l)
	// Reported under mu so concurrent updates reach the sink in order.
	p.sink.SetActiveConnections(len(p.leases))
}

// ActiveLeases returns the number of leases not yet released.
func (p *Pool) ActiveLeases() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.leases)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	s := p.res.Stat()
	return PoolStats{
		Max:                  s.MaxResources(),
		Total:                s.TotalResources(),
		Idle:                 s.IdleResources(),
		Active:               s.AcquiredResources(),
		Constructing:         s.ConstructingResources(),
		AcquireCount:         s.AcquireCount(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
	}
}

// VerifyConnectivity runs a round trip against the backend and reports the
// server clock and version.
func (p *Pool) VerifyConnectivity(ctx context.Context) (*Probe, error) {
	l, err := p.Lease(ctx)
	if err != nil {
		return nil, err
	}
	defer l.Release()

	conn, done, err := l.conn()
	if err != nil {
		return nil, err
	}
	res, err := conn.Query(ctx, "SELECT NOW() AS now, version() AS version")
	done()
	if err != nil {
		if IsConnectionError(err) {
			l.MarkBroken()
		}
		return nil, err
	}

	row := res.First()
	if row == nil {
		return nil, errors.New("db: connectivity probe returned no rows")
	}

	probe := &Probe{}
	if now, ok := row["now"].(time.Time); ok {
		probe.Now = now
	}
	if v, ok := row["version"].(string); ok {
		probe.Version, _, _ = strings.Cut(v, ",")
	}
	return probe, nil
}

func (p *Pool) reap(interval time.Duration) {
	defer close(p.reaperDone)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-p.closingCtx.Done():
			return
		case <-t.C:
			if n := p.reapIdle(); n > 0 {
				p.log.Debug("closed idle connections", "count", n)
			}
		}
	}
}

func (p *Pool) reapIdle() int {
	n := 0
	for _, res := range p.res.AcquireAllIdle() {
		if res.IdleDuration() >= p.cfg.IdleTimeout {
			res.Destroy()
			n++
			continue
		}
		res.ReleaseUnused()
	}
	return n
}

// Shutdown stops new leases and waits for outstanding ones to be released
// before closing every connection. When ctx expires first, in-flight
// statements are cancelled; leases still held after ForceTimeout are revoked
// and their connections closed. Shutdown is idempotent and may be called
// concurrently.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closing.Store(true)
		active := len(p.leases)
		p.mu.Unlock()

		p.stopLeasing()
		p.log.Info("shutting down connection pool", "active_leases", active)

		go func() {
			p.res.Close()
			<-p.reaperDone
			p.force()
			close(p.closed)
		}()
	})

	select {
	case <-p.closed:
		return nil
	case <-ctx.Done():
	}

	p.log.Warn("shutdown grace expired, cancelling in-flight statements",
		"active_leases", p.ActiveLeases())
	p.force()

	t := time.NewTimer(p.cfg.ForceTimeout)
	defer t.Stop()
	select {
	case <-p.closed:
		return nil
	case <-t.C:
	}

	revoked := p.revokeAll()
	p.log.Warn("revoked leases", "count", revoked)

	t.Reset(p.cfg.ForceTimeout)
	select {
	case <-p.closed:
		return fmt.Errorf("db: forced shutdown revoked %d leases: %w", revoked, ctx.Err())
	case <-t.C:
		return fmt.Errorf("db: connection pool did not close: %w", ctx.Err())
	}
}

// Done is closed once the pool has shut down and every connection is closed.
func (p *Pool) Done() <-chan struct{} {
	return p.closed
}

func (p *Pool) revokeAll() int {
	p.mu.Lock()
	leases := make([]*Lease, 0, len(p.leases))
	for l := range p.leases {
		leases = append(leases, l)
	}
	p.mu.Unlock()

	n := 0
	for _, l := range leases {
		if l.revoke() {
			n++
		}
	}
	return n
}
