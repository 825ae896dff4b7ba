// Package xauth implements MIT-MAGIC-COOKIE-1 authorization: reading the
// binary .Xauthority format and comparing a setup request's cookie against
// the allow-list it produces.
package xauth

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/rxserver/rxserver/errors"
)

const (
	mitMagicCookieProto = "MIT-MAGIC-COOKIE-1"
	cookieLen           = 16
)

var ErrTruncatedRecord = errors.New("xauth: truncated .Xauthority record")

// Cookie is one 16-byte MIT-MAGIC-COOKIE-1 secret extracted from an
// .Xauthority file.
type Cookie [cookieLen]byte

// Authority is an allow-list of cookies loaded from an .Xauthority file, or
// a single freshly generated cookie when no file was found.
type Authority struct {
	cookies   []Cookie
	generated bool
}

// Load resolves the authority source in the priority order described by
// the external-interfaces contract: an explicit path override, then
// $XAUTHORITY, then ~/.Xauthority, then a freshly generated cookie.
func Load(pathOverride string) (*Authority, error) {
	path := pathOverride
	if path == "" {
		path = os.Getenv("XAUTHORITY")
	}
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".Xauthority")
		}
	}

	if path != "" {
		cookies, err := readXauthorityFile(path)
		if err == nil && len(cookies) > 0 {
			return &Authority{cookies: cookies}, nil
		}
	}

	cookie, err := generateCookie()
	if err != nil {
		return nil, errors.Wrap(err, "xauth: generating fallback cookie")
	}
	return &Authority{cookies: []Cookie{cookie}, generated: true}, nil
}

// Generated reports whether this authority holds a freshly generated
// cookie rather than one loaded from disk (callers log the value in this
// case, for development use).
func (a *Authority) Generated() bool { return a.generated }

// Cookies exposes the loaded set, for logging the generated-cookie case.
func (a *Authority) Cookies() []Cookie { return a.cookies }

// Verify reports whether data matches one of the allow-listed cookies,
// constant-time per comparison to avoid leaking timing information about
// partial matches.
func (a *Authority) Verify(protocolName string, data []byte) bool {
	if protocolName != mitMagicCookieProto || len(data) != cookieLen {
		return false
	}
	for _, c := range a.cookies {
		if subtleConstantTimeEqual(c[:], data) {
			return true
		}
	}
	return false
}

func subtleConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

func generateCookie() (Cookie, error) {
	var c Cookie
	_, err := io.ReadFull(rand.Reader, c[:])
	return c, err
}

// readXauthorityFile parses every family/addr/display/proto/cookie record
// in a binary .Xauthority file, keeping only MIT-MAGIC-COOKIE-1 entries
// with a 16-byte cookie, per the big-endian record layout in §6.
func readXauthorityFile(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "xauth: reading %s", path)
	}

	var cookies []Cookie
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		var family uint16
		if err := binary.Read(r, binary.BigEndian, &family); err != nil {
			return cookies, nil
		}
		if _, err := readField(r); err != nil { // address
			return cookies, nil
		}
		if _, err := readField(r); err != nil { // display number
			return cookies, nil
		}
		proto, err := readField(r)
		if err != nil {
			return cookies, nil
		}
		cookieBytes, err := readField(r)
		if err != nil {
			return cookies, nil
		}
		if string(proto) == mitMagicCookieProto && len(cookieBytes) == cookieLen {
			var c Cookie
			copy(c[:], cookieBytes)
			cookies = append(cookies, c)
		}
	}
	return cookies, nil
}

// readField reads a u16 big-endian length prefix followed by that many
// bytes, returning the payload.
func readField(r *bytes.Reader) ([]byte, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, ErrTruncatedRecord
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ErrTruncatedRecord
	}
	return buf, nil
}
