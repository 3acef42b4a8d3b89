package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Did is a content-derived digest identity. It is the stable identity and
// cache key used across the engine: packages, constructs, and resolved input
// sets all hash down to a Did.
type Did [32]byte

// ZeroDid is the synthetic root identity used by graph contexts.
var ZeroDid = Did{}

// NewDid computes a Did from an ordered list of byte components.
func NewDid(components ...[]byte) Did {
	h := sha256.New()
	for _, c := range components {
		h.Write(c)
	}
	var did Did
	copy(did[:], h.Sum(nil))
	return did
}

// DidFromHex parses a hex-encoded Did. A leading "0x" prefix is accepted.
func DidFromHex(s string) (Did, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Did{}, err
	}
	if len(raw) != 32 {
		return Did{}, fmt.Errorf("did: expected 32 bytes, got %d", len(raw))
	}
	var did Did
	copy(did[:], raw)
	return did, nil
}

// IsZero reports whether the Did is the zero identity.
func (d Did) IsZero() bool {
	return d == ZeroDid
}

// Bytes returns the raw digest bytes.
func (d Did) Bytes() []byte {
	return d[:]
}

// String returns the hex encoding of the digest.
func (d Did) String() string {
	return hex.EncodeToString(d[:])
}

// Less provides a total order over Dids, used for deterministic iteration.
func (d Did) Less(other Did) bool {
	return bytes.Compare(d[:], other[:]) < 0
}

// MarshalText implements encoding.TextMarshaler ("0x"-prefixed hex).
func (d Did) MarshalText() ([]byte, error) {
	return []byte("0x" + d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Did) UnmarshalText(text []byte) error {
	parsed, err := DidFromHex(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
