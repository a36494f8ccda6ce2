// internal/iscp/packet.go
package iscp

import (
	"bufio"
	"encoding/binary"
	"io"
	"strings"
)

// Port is the fixed eISCP control port.
const Port = 60128

const (
	headerSize = 16
	version    = 0x01

	// maxDataSize bounds the data-length field of an inbound packet.
	// Larger values are treated as stream noise, not as a real packet.
	maxDataSize = 1024
)

var magic = []byte("ISCP")

// Pack wraps an ISCP command in the eISCP binary envelope: magic,
// header size and data size (big-endian), version byte, three reserved
// bytes, then the command terminated by a carriage return.
func Pack(cmd string) []byte {
	pkt := make([]byte, headerSize+len(cmd)+1)
	copy(pkt[0:4], magic)
	binary.BigEndian.PutUint32(pkt[4:8], headerSize)
	binary.BigEndian.PutUint32(pkt[8:12], uint32(len(cmd)+1))
	pkt[12] = version
	copy(pkt[headerSize:], cmd)
	pkt[len(pkt)-1] = '\r'
	return pkt
}

// ReadPacket reads the next well-formed message from an eISCP stream.
// It scans past noise to the magic, tolerates header sizes larger than
// 16 bytes, strips trailing terminators and requires the "!1" unit
// prefix. Malformed packets are skipped; only I/O failure is an error.
func ReadPacket(r *bufio.Reader) (string, error) {
	for {
		if err := seekMagic(r); err != nil {
			return "", err
		}

		var rest [headerSize - 4]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return "", err
		}

		hdrSize := binary.BigEndian.Uint32(rest[0:4])
		dataSize := binary.BigEndian.Uint32(rest[4:8])

		// Not a sane header: resynchronize on the next magic.
		if hdrSize < headerSize || dataSize == 0 || dataSize > maxDataSize {
			continue
		}

		// Some devices pad the header beyond 16 bytes.
		if _, err := r.Discard(int(hdrSize) - headerSize); err != nil {
			return "", err
		}

		data := make([]byte, dataSize)
		if _, err := io.ReadFull(r, data); err != nil {
			return "", err
		}

		msg := string(trimTerminators(data))
		if !strings.HasPrefix(msg, unitPrefix) {
			continue
		}
		return msg, nil
	}
}

// seekMagic discards stream bytes until the 4-byte magic has been read.
func seekMagic(r *bufio.Reader) error {
	matched := 0
	for matched < len(magic) {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case b == magic[matched]:
			matched++
		case b == magic[0]:
			matched = 1
		default:
			matched = 0
		}
	}
	return nil
}

func trimTerminators(b []byte) []byte {
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\r', '\n', 0x1A:
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}
