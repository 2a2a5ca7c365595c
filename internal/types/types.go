// Package types defines core identity and hashing types for X1-Conduit.
//
// These are the leaf value types shared by every layer: 32-byte hashes used
// for message ids and topics, 32-byte account identifiers used by the ledger,
// and 20-byte Ethereum-style addresses used for key-based junctions.
package types

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// Size constants for core types.
const (
	HashSize       = 32
	AccountIDSize  = 32
	EthAddressSize = 20
)

var (
	// ErrInvalidHash is returned when a hash has invalid length.
	ErrInvalidHash = errors.New("invalid hash: must be 32 bytes")

	// ErrInvalidAccountID is returned when an account id has invalid length.
	ErrInvalidAccountID = errors.New("invalid account id: must be 32 bytes")

	// ErrInvalidEthAddress is returned when an address has invalid length.
	ErrInvalidEthAddress = errors.New("invalid eth address: must be 20 bytes")
)

// Hash represents a 32-byte BLAKE3 hash.
type Hash [HashSize]byte

// HashBytes computes the BLAKE3 hash of the given data.
func HashBytes(data []byte) Hash {
	return Hash(blake3.Sum256(data))
}

// HashConcat computes the BLAKE3 hash of the concatenation of the given
// byte slices. Each slice is length-prefixed so that the boundary between
// inputs is unambiguous.
func HashConcat(parts ...[]byte) Hash {
	h := blake3.New()
	var lenbuf [4]byte
	for _, p := range parts {
		lenbuf[0] = byte(len(p))
		lenbuf[1] = byte(len(p) >> 8)
		lenbuf[2] = byte(len(p) >> 16)
		lenbuf[3] = byte(len(p) >> 24)
		h.Write(lenbuf[:])
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashFromBytes creates a Hash from a byte slice.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, ErrInvalidHash
	}
	copy(h[:], b)
	return h, nil
}

// String returns the hex-encoded representation.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// AccountID represents a 32-byte account identifier on the local ledger.
type AccountID [AccountIDSize]byte

// AccountIDFromBase58 parses a base58-encoded account id.
func AccountIDFromBase58(s string) (AccountID, error) {
	var a AccountID
	data, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("base58 decode: %w", err)
	}
	if len(data) != AccountIDSize {
		return a, ErrInvalidAccountID
	}
	copy(a[:], data)
	return a, nil
}

// AccountIDFromBytes creates an AccountID from a byte slice.
func AccountIDFromBytes(b []byte) (AccountID, error) {
	var a AccountID
	if len(b) != AccountIDSize {
		return a, ErrInvalidAccountID
	}
	copy(a[:], b)
	return a, nil
}

// MustAccountIDFromBase58 parses a base58 account id and panics on error.
// For use with hard-coded well-known identifiers only.
func MustAccountIDFromBase58(s string) AccountID {
	a, err := AccountIDFromBase58(s)
	if err != nil {
		panic(fmt.Sprintf("invalid account id %q: %v", s, err))
	}
	return a
}

// String returns the base58-encoded representation.
func (a AccountID) String() string {
	return base58.Encode(a[:])
}

// IsZero returns true if the account id is all zeros.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// Bytes returns the account id as a byte slice.
func (a AccountID) Bytes() []byte {
	return a[:]
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := AccountIDFromBase58(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// EthAddress represents a 20-byte Ethereum-style address, used by key-based
// junctions addressing EVM-compatible consensus systems.
type EthAddress [EthAddressSize]byte

// EthAddressFromBytes creates an EthAddress from a byte slice.
func EthAddressFromBytes(b []byte) (EthAddress, error) {
	var e EthAddress
	if len(b) != EthAddressSize {
		return e, ErrInvalidEthAddress
	}
	copy(e[:], b)
	return e, nil
}

// DeriveEthAddress derives an EthAddress from arbitrary key material using
// Keccak-256, taking the low 20 bytes of the digest as Ethereum does.
func DeriveEthAddress(material []byte) EthAddress {
	k := sha3.NewLegacyKeccak256()
	k.Write(material)
	digest := k.Sum(nil)
	var e EthAddress
	copy(e[:], digest[len(digest)-EthAddressSize:])
	return e
}

// String returns the 0x-prefixed hex representation.
func (e EthAddress) String() string {
	return "0x" + hex.EncodeToString(e[:])
}

// Bytes returns the address as a byte slice.
func (e EthAddress) Bytes() []byte {
	return e[:]
}
