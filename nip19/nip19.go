// Package nip19 implements the bech32 identifier encodings used to
// exchange keys and event ids as human-readable strings (npub1...,
// nsec1..., note1...).
package nip19

import (
	"encoding/hex"
	"fmt"
)

// Encode packs raw bytes into a checksummed bech32 string under the
// given human-readable prefix.
func Encode(hrp string, data []byte) (string, error) {
	bits5, err := convertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	return encode(hrp, bits5)
}

// Decode is the inverse of Encode: it verifies the checksum and returns
// the prefix and the raw bytes.
func Decode(bech32string string) (string, []byte, error) {
	prefix, bits5, err := decode(bech32string)
	if err != nil {
		return "", nil, err
	}

	data, err := convertBits(bits5, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("failed translating data into 8 bits: %w", err)
	}

	return prefix, data, nil
}

// EncodePublicKey turns a 32-byte hex public key into an npub1... string.
func EncodePublicKey(publicKeyHex string) (string, error) {
	b, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode public key hex: %w", err)
	}
	if len(b) != 32 {
		return "", fmt.Errorf("public key should be 32 bytes, not %d", len(b))
	}

	return Encode("npub", b)
}

// EncodePrivateKey turns a 32-byte hex secret key into an nsec1... string.
func EncodePrivateKey(privateKeyHex string) (string, error) {
	b, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode private key hex: %w", err)
	}
	if len(b) != 32 {
		return "", fmt.Errorf("private key should be 32 bytes, not %d", len(b))
	}

	return Encode("nsec", b)
}

// EncodeNote turns a 32-byte hex event id into a note1... string.
func EncodeNote(eventIDHex string) (string, error) {
	b, err := hex.DecodeString(eventIDHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode event id hex: %w", err)
	}
	if len(b) != 32 {
		return "", fmt.Errorf("event id should be 32 bytes, not %d", len(b))
	}

	return Encode("note", b)
}

// DecodeToHex decodes any npub/nsec/note string back into its prefix
// and 64-character hex form.
func DecodeToHex(bech32string string) (string, string, error) {
	prefix, data, err := Decode(bech32string)
	if err != nil {
		return "", "", err
	}
	if len(data) != 32 {
		return "", "", fmt.Errorf("data is %d bytes, expected 32", len(data))
	}
	return prefix, hex.EncodeToString(data), nil
}
