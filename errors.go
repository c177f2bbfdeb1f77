package nostr

import "errors"

// Error categories. Everything this library returns wraps one of these,
// so callers can classify failures with errors.Is without string matching.
var (
	// ErrFormat marks malformed identifiers, hex strings or JSON.
	ErrFormat = errors.New("malformed input")

	// ErrValidation marks events that fail a structural check or whose
	// id doesn't match their recomputed hash.
	ErrValidation = errors.New("event failed validation")

	// ErrCrypto marks malformed keys or signatures. Signature
	// verification itself never returns this, it just returns false.
	ErrCrypto = errors.New("cryptographic material invalid")

	// ErrTransport marks connection and send/receive failures. These
	// are retried internally until the reconnect budget runs out.
	ErrTransport = errors.New("transport failure")

	// ErrProtocol marks relay messages we don't understand.
	ErrProtocol = errors.New("unexpected relay message")
)
