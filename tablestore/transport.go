package tablestore

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// transport owns one borrowed connection for the span of exactly one
// request/response exchange (spec §4.4). It deliberately hand-rolls
// HTTP/1.1 framing over the raw net.Conn rather than using net/http's
// client: the pool needs to own connection lifetime (one request at a
// time, explicit giveBack/destroy) in a way the stdlib client does not
// expose.
type transport struct {
	c      *conn
	logger *zap.Logger
}

func newTransport(c *conn, logger *zap.Logger) *transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transport{c: c, logger: logger}
}

// roundTrip writes a single POST request with the given headers and body,
// then reads and parses exactly one HTTP response. Any I/O error maps to a
// typed Error and the caller is expected to destroy the connection; on
// success the caller gives the connection back.
func (t *transport) roundTrip(host, path string, headers map[string]string, body []byte, deadline time.Time) (status int, respHeaders map[string]string, respBody []byte, err error) {
	defer func() {
		if err != nil {
			t.logger.Debug("round trip failed", zap.String("host", host), zap.String("path", path), zap.Error(err))
		}
	}()

	if err := t.c.Conn.SetDeadline(deadline); err != nil {
		return 0, nil, nil, wrapf(err, "set deadline")
	}

	if err := t.writeRequest(host, path, headers, body); err != nil {
		return 0, nil, nil, newPseudoError(StatusWriteRequestFail, "", "write request: %v", err)
	}

	return t.readResponse()
}

func (t *transport) writeRequest(host, path string, headers map[string]string, body []byte) error {
	w := bufio.NewWriter(t.c.Conn)
	if _, err := fmt.Fprintf(w, "POST %s HTTP/1.1\r\n", path); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Host: %s\r\n", host); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n", len(body)); err != nil {
		return err
	}
	for k, v := range headers {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("Connection: keep-alive\r\n\r\n"); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (t *transport) readResponse() (int, map[string]string, []byte, error) {
	r := bufio.NewReader(t.c.Conn)
	statusLine, err := r.ReadString('\n')
	if err != nil {
		return 0, nil, nil, mapReadError(err)
	}
	status, err := parseStatusLine(statusLine)
	if err != nil {
		return 0, nil, nil, newPseudoError(StatusCorruptedResponse, "", "bad status line %q: %v", statusLine, err)
	}

	tp := textproto.NewReader(r)
	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return 0, nil, nil, newPseudoError(StatusCorruptedResponse, "", "read headers: %v", err)
	}
	headers := make(map[string]string, len(mimeHeader))
	for k, vs := range mimeHeader {
		if len(vs) > 0 {
			headers[k] = vs[0]
		}
	}

	length, err := strconv.Atoi(headers["Content-Length"])
	if err != nil {
		return status, headers, nil, nil
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, nil, mapReadError(err)
	}
	return status, headers, body, nil
}

func parseStatusLine(line string) (int, error) {
	// "HTTP/1.1 200 OK\r\n"
	var httpVer string
	var status int
	var rest string
	n, err := fmt.Sscanf(line, "%s %d %s", &httpVer, &status, &rest)
	if err != nil && n < 2 {
		return 0, err
	}
	return status, nil
}

// mapReadError maps a read-side failure to a typed Error: a timeout (the
// request deadline passing) becomes OperationTimeout, a connection closed
// before the response completed becomes CorruptedResponse, and any other
// read error also becomes CorruptedResponse. Every case is returned to the
// caller, which then destroys the connection.
func mapReadError(err error) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return newPseudoError(StatusOperationTimeout, "", "read timed out: %v", err)
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return newPseudoError(StatusCorruptedResponse, "", "connection closed before response completed")
	}
	return newPseudoError(StatusCorruptedResponse, "", "read response: %v", err)
}
