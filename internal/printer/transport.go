package printer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

// Wire framing: newline-terminated ASCII commands prefixed with "~", answered
// with free text that ends in an "ok" line or contains an error marker.
const (
	commandPrefix  = "~"
	lineTerminator = "\r\n"
	ackToken       = "ok"
	errorToken     = "error"

	readChunkSize = 4096
)

// exchange writes one command and reads until the accumulated response
// contains a terminal marker or the per-read deadline lapses. On deadline the
// accumulated text (possibly empty) is returned; callers detect the missing
// ack. Callers must hold c.ioMu; that lock is what gives total ordering of
// device interactions.
func (c *Client) exchange(cmd string) (string, error) {
	if c.conn == nil {
		return "", ErrNotConnected
	}
	return c.exchangeRaw(commandPrefix + cmd)
}

// exchangeRaw sends a pre-framed line as-is (used for streaming G-code lines
// during uploads, which carry no "~" prefix).
func (c *Client) exchangeRaw(line string) (string, error) {
	if _, err := c.conn.Write([]byte(line + lineTerminator)); err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}

	var buf strings.Builder
	chunk := make([]byte, readChunkSize)
	for {
		if err := c.conn.SetReadDeadline(c.now().Add(c.readTimeout)); err != nil {
			return buf.String(), fmt.Errorf("set read deadline: %w", err)
		}
		n, err := c.conn.Read(chunk)
		buf.Write(chunk[:n])
		if terminal(buf.String()) {
			break
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				// No terminal marker within the bound; hand back whatever
				// arrived.
				break
			}
			if errors.Is(err, io.EOF) {
				// Peer closed after sending; return what arrived. The next
				// write surfaces the dead connection.
				break
			}
			return buf.String(), fmt.Errorf("read response: %w", err)
		}
	}
	return buf.String(), nil
}

// terminal reports whether resp contains a terminal success or error marker.
func terminal(resp string) bool {
	lower := strings.ToLower(resp)
	return strings.Contains(lower, ackToken+lineTerminator) || strings.Contains(lower, errorToken)
}

// isAck reports whether the device acknowledged a command.
func isAck(resp string) bool {
	return strings.Contains(strings.ToLower(resp), ackToken)
}
