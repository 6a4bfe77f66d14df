package tablestore

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startEchoListener accepts connections forever and holds each one open
// until the test process exits, enough for the pool to dial successfully.
func startEchoListener(t *testing.T) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				buf := make([]byte, 4096)
				for {
					if _, err := c.Read(buf); err != nil {
						c.Close()
						return
					}
				}
			}(c)
		}
	}()
	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func waitForInUse(t *testing.T, p *connPool, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		ok := p.inUse() >= n
		p.mu.Unlock()
		if ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pool never reached inUse >= %d", n)
}

func TestConnPool_BoundedBorrowAndWaiters(t *testing.T) {
	host, port := startEchoListener(t)
	p := newConnPool(poolConfig{
		Host:           host,
		Port:           port,
		MaxConns:       2,
		ConnectTimeout: time.Second,
		Logger:         zap.NewNop(),
	})
	defer p.Close()

	waitForInUse(t, p, 2)

	var mu sync.Mutex
	var held []*conn
	var wg sync.WaitGroup
	const borrowers = 5
	errs := make([]error, borrowers)
	for i := 0; i < borrowers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := p.borrow(time.Now().Add(500 * time.Millisecond))
			errs[i] = err
			if err == nil {
				mu.Lock()
				held = append(held, c)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		if err == nil {
			okCount++
		}
	}
	assert.Equal(t, 2, okCount, "exactly maxConns borrowers should succeed before the rest time out")

	p.mu.Lock()
	assert.Equal(t, 2, p.busy)
	assert.Equal(t, 0, len(p.idle))
	p.mu.Unlock()

	for _, c := range held {
		c.giveBack()
	}
	p.mu.Lock()
	assert.Equal(t, 0, p.busy)
	assert.Equal(t, 2, len(p.idle))
	p.mu.Unlock()
}

func TestConnPool_BorrowTimesOutWhenExhausted(t *testing.T) {
	host, port := startEchoListener(t)
	p := newConnPool(poolConfig{
		Host:           host,
		Port:           port,
		MaxConns:       1,
		ConnectTimeout: time.Second,
		Logger:         zap.NewNop(),
	})
	defer p.Close()

	waitForInUse(t, p, 1)

	c, err := p.borrow(time.Now().Add(500 * time.Millisecond))
	require.NoError(t, err)

	_, err = p.borrow(time.Now().Add(100 * time.Millisecond))
	assert.Error(t, err)

	c.giveBack()
}

func TestConnPool_CloseFailsPendingWaiters(t *testing.T) {
	host, port := startEchoListener(t)
	p := newConnPool(poolConfig{
		Host:           host,
		Port:           port,
		MaxConns:       1,
		ConnectTimeout: time.Second,
		Logger:         zap.NewNop(),
	})

	waitForInUse(t, p, 1)
	c, err := p.borrow(time.Now().Add(time.Second))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.borrow(time.Now().Add(5 * time.Second))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Close()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was never failed by Close")
	}
	c.Conn.Close()
}
