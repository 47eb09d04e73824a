package mmcrypto

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// EncodeHex renders b as a lowercase 0x-prefixed hex string, the canonical
// encoding for every binary field the protocol persists.
func EncodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// DecodeHex decodes a 0x-prefixed hex string. The prefix is mandatory and
// uppercase digits are rejected; persisted state is canonical or invalid.
func DecodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("hex: missing 0x prefix")
	}
	ss := s[2:]
	if len(ss) == 0 {
		return nil, fmt.Errorf("hex: empty value")
	}
	if len(ss)%2 != 0 {
		return nil, fmt.Errorf("hex: odd length")
	}
	if strings.ToLower(ss) != ss {
		return nil, fmt.Errorf("hex: uppercase digits")
	}
	b, err := hex.DecodeString(ss)
	if err != nil {
		return nil, fmt.Errorf("hex: %w", err)
	}
	return b, nil
}

// DecodeHexFixed decodes a 0x-prefixed hex string of exactly n bytes.
func DecodeHexFixed(s string, n int) ([]byte, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("hex: expected %d bytes, got %d", n, len(b))
	}
	return b, nil
}

func u32le(x uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return b
}

func u64le(x uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, x)
	return b
}

func concatBytes(chunks ...[]byte) []byte {
	var n int
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
