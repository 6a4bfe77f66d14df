package tablestore

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/rs/dnscache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	replenishInterval  = 15 * time.Second
	dnsErrorLogSilence = 15 * time.Second
)

// conn wraps one pool-owned socket.
type conn struct {
	net.Conn
	pool *connPool
}

// giveBack returns a healthy connection to the idle queue.
func (c *conn) giveBack() {
	c.pool.giveBack(c)
}

// destroy closes a broken connection and drops its slot.
func (c *conn) destroy() {
	c.pool.destroy(c)
}

type waiter struct {
	deadline time.Time
	result   chan borrowResult
}

type borrowResult struct {
	conn *conn
	err  error
}

// connPool resolves a host, maintains up to maxConns TCP/TLS connections to
// it, and serves FIFO borrow/return with deadlines (spec §4.3).
type connPool struct {
	host       string
	port       string
	useTLS     bool
	maxConns   int
	connectTimeout time.Duration
	resolver   *dnscache.Resolver
	logger     *zap.Logger

	mu         sync.Mutex
	idle       []*conn
	busy       int
	connecting int
	waiters    []*waiter
	closed     bool

	connectErrLimiter *rate.Limiter

	stopReplenish chan struct{}
	stopOnce      sync.Once
}

type poolConfig struct {
	Host           string
	Port           string
	UseTLS         bool
	MaxConns       int
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

func newConnPool(cfg poolConfig) *connPool {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &connPool{
		host:           cfg.Host,
		port:           cfg.Port,
		useTLS:         cfg.UseTLS,
		maxConns:       cfg.MaxConns,
		connectTimeout: cfg.ConnectTimeout,
		resolver:       &dnscache.Resolver{},
		logger:         logger,
		stopReplenish:  make(chan struct{}),
		connectErrLimiter: rate.NewLimiter(rate.Every(dnsErrorLogSilence), 1),
	}
	go p.replenishLoop()
	go p.waiterLoop()
	p.replenish()
	return p
}

// inUse reports idle+busy+connecting, the quantity the pool bounds at
// maxConns (spec §4.3 invariant).
func (p *connPool) inUse() int {
	return len(p.idle) + p.busy + p.connecting
}

func (p *connPool) replenishLoop() {
	ticker := time.NewTicker(replenishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.replenish()
		case <-p.stopReplenish:
			return
		}
	}
}

func (p *connPool) replenish() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	need := p.maxConns - p.inUse()
	if need <= 0 {
		p.mu.Unlock()
		return
	}
	p.connecting += need
	p.mu.Unlock()

	for i := 0; i < need; i++ {
		go p.connectOne()
	}
}

func (p *connPool) connectOne() {
	c, err := p.dial()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.connecting--
	if p.closed {
		if err == nil {
			c.Close()
		}
		return
	}
	if err != nil {
		p.logRateLimited("connect failed", err)
		return
	}
	pc := &conn{Conn: c, pool: p}
	p.idle = append(p.idle, pc)
}

func (p *connPool) dial() (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.connectTimeout)
	defer cancel()

	ips, err := p.resolver.LookupHost(ctx, p.host)
	if err != nil {
		return nil, newPseudoError(StatusCouldntResolveHost, "", "resolve %s: %v", p.host, err)
	}
	if len(ips) == 0 {
		return nil, newPseudoError(StatusCouldntResolveHost, "", "no addresses resolved for %s", p.host)
	}

	addr := net.JoinHostPort(ips[0], p.port)
	dialer := &net.Dialer{Timeout: p.connectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, newPseudoError(StatusCouldntConnect, "", "dial %s: %v", addr, err)
	}
	if !p.useTLS {
		return rawConn, nil
	}
	tlsConn := tls.Client(rawConn, &tls.Config{ServerName: p.host})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, newPseudoError(StatusSSLHandshakeFail, "", "tls handshake with %s: %v", p.host, err)
	}
	return tlsConn, nil
}

// logRateLimited logs dial/resolve failures at most once per
// dnsErrorLogSilence window, so a persistently unreachable endpoint does not
// flood the log with one line per failed replenish attempt.
func (p *connPool) logRateLimited(msg string, err error) {
	if !p.connectErrLimiter.Allow() {
		return
	}
	p.logger.Warn(msg, zap.String("host", p.host), zap.Error(err))
}

// borrow waits up to deadline for an idle connection.
func (p *connPool) borrow(deadline time.Time) (*conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, newPseudoError(StatusNoConnectionAvailable, "", "pool is closed")
	}
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.busy++
		p.mu.Unlock()
		return c, nil
	}
	w := &waiter{deadline: deadline, result: make(chan borrowResult, 1)}
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case r := <-w.result:
		return r.conn, r.err
	case <-time.After(time.Until(deadline)):
		return nil, newPseudoError(StatusOperationTimeout, "", "timed out waiting for a connection")
	}
}

// waiterLoop periodically scans the waiter list, matching freshly idle
// connections and failing any past deadline, per spec §4.3.
func (p *connPool) waiterLoop() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.serviceWaiters()
		case <-p.stopReplenish:
			p.failAllWaiters()
			return
		}
	}
}

func (p *connPool) serviceWaiters() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var remaining []*waiter
	for _, w := range p.waiters {
		if now.After(w.deadline) {
			w.result <- borrowResult{err: newPseudoError(StatusOperationTimeout, "", "timed out waiting for a connection")}
			continue
		}
		if len(p.idle) > 0 {
			c := p.idle[len(p.idle)-1]
			p.idle = p.idle[:len(p.idle)-1]
			p.busy++
			w.result <- borrowResult{conn: c}
			continue
		}
		remaining = append(remaining, w)
	}
	p.waiters = remaining
}

func (p *connPool) failAllWaiters() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.waiters {
		w.result <- borrowResult{err: newPseudoError(StatusNoConnectionAvailable, "", "pool is shutting down")}
	}
	p.waiters = nil
}

func (p *connPool) giveBack(c *conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy--
	if p.closed {
		c.Conn.Close()
		return
	}
	p.idle = append(p.idle, c)
}

func (p *connPool) destroy(c *conn) {
	c.Conn.Close()
	p.mu.Lock()
	p.busy--
	closed := p.closed
	p.mu.Unlock()
	if !closed {
		p.replenish()
	}
}

// Close shuts the pool down: no more connects, waiters fail, idle
// connections are closed. In-flight busy connections are closed as they
// are returned.
func (p *connPool) Close() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		idle := p.idle
		p.idle = nil
		p.mu.Unlock()
		for _, c := range idle {
			c.Conn.Close()
		}
		close(p.stopReplenish)
	})
}
