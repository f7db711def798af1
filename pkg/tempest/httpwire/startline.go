package httpwire

import (
	"bufio"
	"strconv"
	"strings"
)

// MaxHeaderBlockSize bounds the total bytes read for a start line plus
// headers, guarding against a peer that never sends the terminating
// blank line.
const MaxHeaderBlockSize = 16 * 1024

// RequestLine is "METHOD path HTTP/x.y" per RFC 7230 §3.1.1.
type RequestLine struct {
	Method string
	Path   string
	Proto  string
}

// StatusLine is "HTTP/x.y code reason" per RFC 7230 §3.1.2.
type StatusLine struct {
	Proto  string
	Code   int
	Reason string
}

// ParseRequestLine parses a single request line. Adapted from the
// teacher's http11.Parser.parseRequestLine, generalized from a
// zero-copy byte-slice single-pass scan to the same approach over a
// string (the handshake path parses a handful of headers, not a
// high-QPS request stream, so the inline byte-array optimizations the
// teacher applies to its general-purpose HTTP engine do not pay for
// themselves here).
func ParseRequestLine(line string) (RequestLine, error) {
	line = strings.TrimRight(line, "\r\n")

	sp1 := strings.IndexByte(line, ' ')
	if sp1 < 0 {
		return RequestLine{}, ErrInvalidRequestLine
	}
	method := line[:sp1]

	rest := line[sp1+1:]
	sp2 := strings.IndexByte(rest, ' ')
	if sp2 < 0 {
		return RequestLine{}, ErrInvalidRequestLine
	}
	path := rest[:sp2]
	proto := rest[sp2+1:]

	if method == "" || path == "" || !strings.HasPrefix(proto, "HTTP/") {
		return RequestLine{}, ErrInvalidRequestLine
	}

	return RequestLine{Method: method, Path: path, Proto: proto}, nil
}

// ParseStatusLine parses a single status line: "HTTP/x.y SP code SP
// reason". The three-digit status code token must immediately follow
// the HTTP version, per RFC 7230 §3.1.2 — extra or missing digits are
// rejected rather than tolerated.
func ParseStatusLine(line string) (StatusLine, error) {
	line = strings.TrimRight(line, "\r\n")

	sp1 := strings.IndexByte(line, ' ')
	if sp1 < 0 {
		return StatusLine{}, ErrInvalidStatusLine
	}
	proto := line[:sp1]
	if !strings.HasPrefix(proto, "HTTP/") {
		return StatusLine{}, ErrInvalidStatusLine
	}

	rest := line[sp1+1:]
	var codeStr, reason string
	if sp2 := strings.IndexByte(rest, ' '); sp2 >= 0 {
		codeStr = rest[:sp2]
		reason = rest[sp2+1:]
	} else {
		codeStr = rest
	}

	if len(codeStr) != 3 {
		return StatusLine{}, ErrInvalidStatusLine
	}
	for i := 0; i < len(codeStr); i++ {
		if codeStr[i] < '0' || codeStr[i] > '9' {
			return StatusLine{}, ErrInvalidStatusLine
		}
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return StatusLine{}, ErrInvalidStatusLine
	}

	return StatusLine{Proto: proto, Code: code, Reason: reason}, nil
}

// ReadHeaderBlock reads header lines from br until the terminating blank
// line, handling RFC 7230 §3.2.4 obsolete line folding: a continuation
// line beginning with SP or HT is appended to the previous header's
// value with a single inserted space, rather than starting a new
// header.
func ReadHeaderBlock(br *bufio.Reader) (*Header, error) {
	h := &Header{}
	total := 0

	var lastIdx = -1

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if len(line) == 0 {
				return nil, ErrUnexpectedEOF
			}
			// Treat a final line without trailing \n as the last one.
		}

		total += len(line)
		if total > MaxHeaderBlockSize {
			return nil, ErrHeadersTooLarge
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}

		if (line[0] == ' ' || line[0] == '\t') && lastIdx >= 0 {
			// Obsolete line folding: continuation of the previous value.
			h.values[lastIdx] = h.values[lastIdx] + " " + strings.TrimSpace(trimmed)
			continue
		}

		colon := strings.IndexByte(trimmed, ':')
		if colon < 0 {
			return nil, ErrInvalidHeader
		}
		name := trimmed[:colon]
		value := strings.TrimSpace(trimmed[colon+1:])

		h.Add(name, value)
		lastIdx = len(h.values) - 1

		if err != nil {
			break
		}
	}

	return h, nil
}

// WriteRequestHead writes a request line, headers (in insertion order),
// and the terminating blank line.
func WriteRequestHead(w *bufio.Writer, method, path, proto string, h *Header) error {
	if _, err := w.WriteString(method); err != nil {
		return err
	}
	if err := w.WriteByte(' '); err != nil {
		return err
	}
	if _, err := w.WriteString(path); err != nil {
		return err
	}
	if err := w.WriteByte(' '); err != nil {
		return err
	}
	if _, err := w.WriteString(proto); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return writeHeadersAndBlank(w, h)
}

// WriteStatusHead writes a status line, headers (in insertion order),
// and the terminating blank line.
func WriteStatusHead(w *bufio.Writer, proto string, code int, reason string, h *Header) error {
	if _, err := w.WriteString(proto); err != nil {
		return err
	}
	if err := w.WriteByte(' '); err != nil {
		return err
	}
	if _, err := w.WriteString(strconv.Itoa(code)); err != nil {
		return err
	}
	if err := w.WriteByte(' '); err != nil {
		return err
	}
	if _, err := w.WriteString(reason); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return writeHeadersAndBlank(w, h)
}

func writeHeadersAndBlank(w *bufio.Writer, h *Header) error {
	var writeErr error
	h.VisitAll(func(name, value string) {
		if writeErr != nil {
			return
		}
		if _, err := w.WriteString(name); err != nil {
			writeErr = err
			return
		}
		if _, err := w.WriteString(": "); err != nil {
			writeErr = err
			return
		}
		if _, err := w.WriteString(value); err != nil {
			writeErr = err
			return
		}
		if _, err := w.WriteString("\r\n"); err != nil {
			writeErr = err
			return
		}
	})
	if writeErr != nil {
		return writeErr
	}
	_, err := w.WriteString("\r\n")
	return err
}
