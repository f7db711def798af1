package websocket

import (
	"encoding/binary"
	"io"
)

// readExact reads exactly len(buf) bytes from r, the same contract the
// teacher's frame.go leans on io.ReadFull for: a short read against a
// live TCP connection is never "successful with fewer bytes", it is
// either a full read or an error (including io.ErrUnexpectedEOF on a
// partial frame at EOF).
func readExact(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

func readUint16BE(r io.Reader, scratch []byte) (uint16, error) {
	if err := readExact(r, scratch[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(scratch[:2]), nil
}

func readUint64BE(r io.Reader, scratch []byte) (uint64, error) {
	if err := readExact(r, scratch[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(scratch[:8]), nil
}

func writeUint16BE(buf []byte, v uint16) {
	binary.BigEndian.PutUint16(buf, v)
}

func writeUint64BE(buf []byte, v uint64) {
	binary.BigEndian.PutUint64(buf, v)
}
