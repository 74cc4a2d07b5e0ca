package server

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"
)

// pendingPollWindow bounds how long PendingInput blocks waiting for a byte
// that may already be in flight.
const pendingPollWindow = time.Millisecond

// Connection wraps a net.Conn with CRLF line framing, per-read deadline
// management, and the pending-input poll used for early-talker detection.
type Connection struct {
	conn        net.Conn
	reader      *bufio.Reader
	writer      *bufio.Writer
	readTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewConnection creates a new Connection wrapper. readTimeout bounds each
// individual read; zero means reads block forever.
func NewConnection(conn net.Conn, readTimeout time.Duration) *Connection {
	return &Connection{
		conn:        conn,
		reader:      bufio.NewReader(conn),
		writer:      bufio.NewWriter(conn),
		readTimeout: readTimeout,
	}
}

// RemoteIP returns the client's IP address without the port.
func (c *Connection) RemoteIP() string {
	addr := c.conn.RemoteAddr()
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// ReadLine reads one CRLF-terminated line, honoring the configured receive
// timeout, and returns it without the line terminator.
func (c *Connection) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return "", err
		}
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriteLine writes a line followed by CRLF and flushes it before returning.
func (c *Connection) WriteLine(line string) error {
	if _, err := c.writer.WriteString(line); err != nil {
		return err
	}
	if _, err := c.writer.WriteString("\r\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

// PendingInput reports whether the client has already sent bytes we have not
// read yet. It first consults the buffered reader, then polls the socket for
// up to pendingPollWindow (one millisecond). Used at the two early-talker
// check points.
func (c *Connection) PendingInput() bool {
	if c.reader.Buffered() > 0 {
		return true
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(pendingPollWindow)); err != nil {
		return false
	}
	_, err := c.reader.Peek(1)
	// Restore the blocking behavior ReadLine expects; ReadLine re-arms its
	// own deadline when one is configured.
	_ = c.conn.SetReadDeadline(time.Time{})
	return err == nil
}

// IsTimeout reports whether err is a read-deadline expiry.
func IsTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// Close closes the connection. Safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
