package nostr

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// GeneratePrivateKey returns a fresh random secret key as 64 lowercase
// hex characters, or "" if the system entropy source fails.
func GeneratePrivateKey() string {
	sk, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(sk.Serialize())
}

// GetPublicKey derives the 32-byte x-only public key for the given
// hex secret key. This is the single place where the x-only form is
// produced (compressed point minus the parity byte); everything else
// takes the result as-is.
func GetPublicKey(sk string) (string, error) {
	b, err := hex.DecodeString(sk)
	if err != nil {
		return "", fmt.Errorf("%w: private key is invalid hex: %s", ErrFormat, err)
	}
	if len(b) != 32 {
		return "", fmt.Errorf("%w: private key must be 32 bytes, got %d", ErrFormat, len(b))
	}

	_, pk := btcec.PrivKeyFromBytes(b)
	return hex.EncodeToString(schnorr.SerializePubKey(pk)), nil
}

// IsValidPublicKey checks if a string is a valid hex x-only public key,
// meaning 64 lowercase hex characters.
func IsValidPublicKey(pk string) bool {
	return IsValid32ByteHex(pk)
}

// KeyPair holds a secret key together with its derived public key, both
// hex-encoded. It is never serialized into event bodies.
type KeyPair struct {
	SecretKey string
	PublicKey string
}

// NewKeyPair derives the public key for sk and returns both.
func NewKeyPair(sk string) (KeyPair, error) {
	pk, err := GetPublicKey(sk)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{SecretKey: sk, PublicKey: pk}, nil
}

// GenerateKeyPair creates a new random KeyPair.
func GenerateKeyPair() (KeyPair, error) {
	sk := GeneratePrivateKey()
	if sk == "" {
		return KeyPair{}, fmt.Errorf("%w: no entropy available", ErrCrypto)
	}
	return NewKeyPair(sk)
}
