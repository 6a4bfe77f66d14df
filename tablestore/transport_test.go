package tablestore

import (
	"bufio"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnce accepts a single connection, reads until the blank line ending
// the request headers (ignoring any request body), then writes resp back.
func serveOnce(t *testing.T, ln net.Listener, resp string) {
	t.Helper()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		r := bufio.NewReader(c)
		for {
			line, err := r.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		c.Write([]byte(resp))
	}()
}

func dialLocal(t *testing.T, ln net.Listener) *conn {
	t.Helper()
	raw, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	return &conn{Conn: raw}
}

func TestTransport_RoundTrip_OKResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	body := "hello world"
	resp := "HTTP/1.1 200 OK\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\nX-Ots-Requestid: req-1\r\n\r\n" + body
	serveOnce(t, ln, resp)

	c := dialLocal(t, ln)
	defer c.Conn.Close()
	tr := newTransport(c, nil)

	status, headers, respBody, err := tr.roundTrip("localhost", "/GetRow", map[string]string{"X-Ots-Date": "x"}, []byte("req-body"), time.Now().Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, "req-1", headers["X-Ots-Requestid"])
	assert.Equal(t, body, string(respBody))
}

func TestTransport_RoundTrip_NoBody(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	resp := "HTTP/1.1 404 Not Found\r\n\r\n"
	serveOnce(t, ln, resp)

	c := dialLocal(t, ln)
	defer c.Conn.Close()
	tr := newTransport(c, nil)

	status, _, respBody, err := tr.roundTrip("localhost", "/GetRow", nil, nil, time.Now().Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 404, status)
	assert.Empty(t, respBody)
}

func TestTransport_RoundTrip_DeadlineExceeded(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		time.Sleep(time.Second)
	}()

	c := dialLocal(t, ln)
	defer c.Conn.Close()
	tr := newTransport(c, nil)

	_, _, _, err = tr.roundTrip("localhost", "/GetRow", nil, nil, time.Now().Add(20*time.Millisecond))
	assert.Error(t, err)
}

