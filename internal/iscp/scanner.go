// internal/iscp/scanner.go
package iscp

// maxMessage bounds an unterminated message before the scanner resets.
const maxMessage = 256

// Scanner frames raw ISCP messages from an undelimited byte stream
// (serial port or TCP bridge). Bytes before the '!' start marker are
// noise and discarded; a message ends at the first terminator byte.
// Feed one byte at a time; scanner state survives read timeouts
// between bytes.
type Scanner struct {
	buf []byte
}

// Feed consumes one stream byte. When the byte completes a message,
// the message is returned with ok=true.
func (s *Scanner) Feed(b byte) (msg string, ok bool) {
	switch b {
	case '\r', '\n', 0x1A:
		if len(s.buf) == 0 {
			return "", false
		}
		msg = string(s.buf)
		s.buf = s.buf[:0]
		return msg, true

	case '!':
		// Start marker always restarts collection.
		s.buf = append(s.buf[:0], b)
		return "", false

	default:
		if len(s.buf) == 0 {
			// noise before start marker
			return "", false
		}
		if len(s.buf) >= maxMessage {
			s.buf = s.buf[:0]
			return "", false
		}
		s.buf = append(s.buf, b)
		return "", false
	}
}
