package nostr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

type Event struct {
	ID        string
	PubKey    string
	CreatedAt Timestamp
	Kind      int
	Tags      Tags
	Content   string
	Sig       string
}

// NewEvent assembles an unsigned event stamped with the current time.
// The id and signature are only set when Sign is called.
func NewEvent(pubkey string, kind int, content string, tags Tags) Event {
	if tags == nil {
		tags = make(Tags, 0)
	}
	return Event{
		PubKey:    strings.ToLower(pubkey),
		CreatedAt: Now(),
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
}

// Event Stringer interface, just returns the raw JSON as a string.
func (evt Event) String() string {
	j, _ := json.Marshal(evt)
	return string(j)
}

// GetID serializes and returns the event ID as a string.
func (evt *Event) GetID() string {
	h := sha256.Sum256(evt.Serialize())
	return hex.EncodeToString(h[:])
}

// CheckID re-serializes the event and reports whether its ID field
// matches the recomputed hash.
func (evt *Event) CheckID() bool {
	return evt.GetID() == evt.ID
}

// Serialize outputs a byte array that can be hashed/signed to identify/authenticate.
// JSON encoding as defined in RFC4627.
func (evt *Event) Serialize() []byte {
	// the serialization process is just putting everything into a JSON array
	// so the order is kept. See NIP-01
	dst := make([]byte, 0, 100+len(evt.Content)+len(evt.Tags)*80)

	// the header portion is easy to serialize
	// [0,"pubkey",created_at,kind,[
	dst = append(dst, []byte(`[0,"`)...)
	dst = append(dst, []byte(strings.ToLower(evt.PubKey))...)
	dst = append(dst, []byte(`",`)...)
	dst = strconv.AppendInt(dst, int64(evt.CreatedAt), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(evt.Kind), 10)
	dst = append(dst, ',')

	// tags
	dst = evt.Tags.marshalTo(dst)
	dst = append(dst, ',')

	// content needs to be escaped in general as it is user generated.
	dst = escapeString(dst, evt.Content)
	dst = append(dst, ']')

	return dst
}

// CheckSignature checks if the signature is valid for the event content.
// It won't look at the ID field, instead it will recompute the id from the entire event body.
// Malformed keys or signatures yield false together with an error that
// wraps ErrCrypto or ErrFormat; this never panics.
func (evt Event) CheckSignature() (bool, error) {
	// read and check pubkey
	pk, err := hex.DecodeString(evt.PubKey)
	if err != nil {
		return false, fmt.Errorf("%w: event pubkey '%s' is invalid hex: %s", ErrFormat, evt.PubKey, err)
	}

	pubkey, err := schnorr.ParsePubKey(pk)
	if err != nil {
		return false, fmt.Errorf("%w: event has invalid pubkey '%s': %s", ErrCrypto, evt.PubKey, err)
	}

	// read signature
	s, err := hex.DecodeString(evt.Sig)
	if err != nil {
		return false, fmt.Errorf("%w: signature '%s' is invalid hex: %s", ErrFormat, evt.Sig, err)
	}
	sig, err := schnorr.ParseSignature(s)
	if err != nil {
		return false, fmt.Errorf("%w: failed to parse signature: %s", ErrCrypto, err)
	}

	// check signature
	hash := sha256.Sum256(evt.Serialize())
	return sig.Verify(hash[:], pubkey), nil
}

// Sign signs an event with a given secretKey, setting its ID and Sig
// fields. An empty PubKey is filled in from the key; a PubKey that
// doesn't match the key is kept and only logged as a warning, since
// relays are the ones that reject such events.
func (evt *Event) Sign(secretKey string) error {
	s, err := hex.DecodeString(secretKey)
	if err != nil {
		return fmt.Errorf("%w: Sign called with invalid secret key: %s", ErrFormat, err)
	}

	if evt.Tags == nil {
		evt.Tags = make(Tags, 0)
	}

	sk, pk := btcec.PrivKeyFromBytes(s)
	derived := hex.EncodeToString(schnorr.SerializePubKey(pk))
	if evt.PubKey == "" {
		evt.PubKey = derived
	} else if evt.PubKey != derived {
		InfoLogger.Printf("signing event with key for %s but event pubkey is %s; relays will likely reject it",
			derived, evt.PubKey)
	}

	h := sha256.Sum256(evt.Serialize())
	sig, err := schnorr.Sign(sk, h[:], schnorr.FastSign())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCrypto, err)
	}

	evt.ID = hex.EncodeToString(h[:])
	evt.Sig = hex.EncodeToString(sig.Serialize())

	return nil
}
