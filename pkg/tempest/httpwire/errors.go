package httpwire

import "errors"

// Start-line errors.
var (
	ErrInvalidRequestLine = errors.New("httpwire: invalid request line")
	ErrInvalidStatusLine  = errors.New("httpwire: invalid status line")
	ErrUnsupportedVersion = errors.New("httpwire: unsupported HTTP version")
)

// Header errors.
var (
	ErrInvalidHeader   = errors.New("httpwire: invalid header line")
	ErrHeadersTooLarge  = errors.New("httpwire: headers exceed size limit")
	ErrUnexpectedEOF    = errors.New("httpwire: unexpected EOF reading headers")
)
