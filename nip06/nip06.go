// Package nip06 derives nostr keys from BIP-39 mnemonic seed phrases,
// the standard way clients import and back up identities.
package nip06

import (
	"encoding/hex"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// the NIP-06 derivation path: m/44'/1237'/0'/0/0
var derivationPath = []uint32{
	bip32.FirstHardenedChild + 44,
	bip32.FirstHardenedChild + 1237,
	bip32.FirstHardenedChild + 0,
	0,
	0,
}

// GenerateSeedWords returns a fresh 24-word mnemonic.
func GenerateSeedWords() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}

	return bip39.NewMnemonic(entropy)
}

func SeedFromWords(words string) []byte {
	return bip39.NewSeed(words, "")
}

// PrivateKeyFromSeed derives the hex secret key at the NIP-06 path.
func PrivateKeyFromSeed(seed []byte) (string, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return "", err
	}

	for _, idx := range derivationPath {
		if key, err = key.NewChildKey(idx); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(key.Key), nil
}

func ValidateWords(words string) bool {
	return bip39.IsMnemonicValid(words)
}
