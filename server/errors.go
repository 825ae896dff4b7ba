package server

import "github.com/rxserver/rxserver/errors"

// Sentinel errors naming the close-class conditions of the connection state
// machine (close vs. keep-open-and-answer-with-an-X11-error), classified by
// IsCloseError. The handshake and the acceptor handle these conditions
// directly and do not return these values.
var (
	// ErrProtocolVersion marks a setup request for a major protocol
	// version this server does not speak (only 11 is supported).
	ErrProtocolVersion = errors.New("server: unsupported protocol major version")

	// ErrAuthRejected marks a setup request whose authorization protocol
	// name/data did not pass xauth.Authority.Verify.
	ErrAuthRejected = errors.New("server: authorization rejected")

	// ErrConnectionLimit marks a connection refused because MaxClients is
	// already reached.
	ErrConnectionLimit = errors.New("server: connection limit reached")
)

// IsCloseError reports whether err should terminate the connection
// immediately rather than being answered with an in-band X11 error frame.
func IsCloseError(err error) bool {
	return errors.Is(err, ErrProtocolVersion) ||
		errors.Is(err, ErrAuthRejected) ||
		errors.Is(err, ErrConnectionLimit)
}
