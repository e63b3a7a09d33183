package config

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"hivechat/internal/protocol"
)

// ── Port specs ───────────────────────────────────────────────────────
//
// A [port] argument is either a decimal port number or a server name.
// Names are hashed into the dynamic range so that "/host lobby" and
// "/join 10.0.0.5 lobby" meet on the same port without either side
// having to know a number.

// ParsePort accepts a decimal port in 1–65535.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// DerivePort maps a server name onto a port in
// [DerivedPortMin, DerivedPortMax].  The mapping is stable across
// processes and platforms.
func DerivePort(name string) int {
	sum := blake2b.Sum256([]byte(name))
	span := uint64(DerivedPortMax - DerivedPortMin + 1)
	return DerivedPortMin + int(binary.BigEndian.Uint64(sum[:8])%span)
}

// ResolvePort turns a [port] argument into a port number: numeric specs
// are parsed, valid names are derived.
func ResolvePort(spec string) (int, error) {
	if isDigits(spec) {
		return ParsePort(spec)
	}
	if !protocol.IsValidName(spec) {
		return 0, fmt.Errorf("invalid port %q: use a number or a name of 3-31 letters and digits", spec)
	}
	return DerivePort(spec), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
