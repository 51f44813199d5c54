package testutil

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// TelnetClient is a line-oriented test client for the Risk table console.
type TelnetClient struct {
	conn   net.Conn
	reader *bufio.Reader
	seen   strings.Builder
	t      testing.TB
}

// NewTelnetClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t testing.TB, addr string) *TelnetClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &TelnetClient{
		conn:   conn,
		reader: bufio.NewReader(conn),
		t:      t,
	}
}

// ReadUntil reads until substr appears in the output received since the
// previous match, and returns that output. Bytes after the match stay buffered.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns output ending with substr, or fails on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	for {
		if strings.HasSuffix(c.seen.String(), substr) {
			out := c.seen.String()
			c.seen.Reset()
			return out
		}
		b, err := c.reader.ReadByte()
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, c.seen.String(), err)
		}
		c.seen.WriteByte(b)
	}
}

// Send writes a line of text to the server, appending \r\n.
//
// Precondition: text should not contain trailing newline characters.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	c.SendRaw([]byte(text + "\r\n"))
}

// SendRaw writes bytes unchanged, for protocol sequences such as IAC commands.
func (c *TelnetClient) SendRaw(data []byte) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write(data); err != nil {
		c.t.Fatalf("sending %q: %v", data, err)
	}
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	_ = c.conn.Close()
}

