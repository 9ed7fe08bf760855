package audit

import (
	"encoding/binary"
	"fmt"

	"github.com/multiformats/go-multihash"
)

// StateHash returns a base58 SHA2-256 multihash over parts. Each part is
// length-prefixed so that moving bytes between parts changes the hash.
func StateHash(parts ...[]byte) (string, error) {
	var buf []byte
	for _, p := range parts {
		buf = binary.AppendUvarint(buf, uint64(len(p)))
		buf = append(buf, p...)
	}

	mh, err := multihash.Sum(buf, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("failed to hash state: %w", err)
	}
	return mh.B58String(), nil
}

// MatchesStateHash reports whether hash was produced by StateHash over parts.
func MatchesStateHash(hash string, parts ...[]byte) (bool, error) {
	recorded, err := multihash.FromB58String(hash)
	if err != nil {
		return false, fmt.Errorf("invalid state hash %q: %w", hash, err)
	}
	decoded, err := multihash.Decode(recorded)
	if err != nil {
		return false, fmt.Errorf("invalid state hash %q: %w", hash, err)
	}
	if decoded.Code != multihash.SHA2_256 {
		return false, fmt.Errorf("unsupported state hash function %q", decoded.Name)
	}

	current, err := StateHash(parts...)
	if err != nil {
		return false, err
	}
	return current == hash, nil
}
