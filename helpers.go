package nostr

import (
	"golang.org/x/exp/constraints"
)

// Similar reports whether both slices hold the same set of elements,
// disregarding order.
func Similar[E constraints.Ordered](as, bs []E) bool {
	if len(as) != len(bs) {
		return false
	}

	for _, a := range as {
		for _, b := range bs {
			if b == a {
				goto next
			}
		}
		// didn't find a B that corresponded to the current A
		return false

	next:
		continue
	}

	return true
}

// escapeString appends s to dst as a double-quoted JSON string using the
// minimal escaping mandated by NIP-01: the canonical serialization must
// be byte-identical across implementations, so nothing beyond the
// required escapes is emitted.
func escapeString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			// quotation mark
			dst = append(dst, []byte{'\\', '"'}...)
		case c == '\\':
			// reverse solidus
			dst = append(dst, []byte{'\\', '\\'}...)
		case c >= 0x00 && c <= 0x1f:
			// control characters
			switch c {
			case '\b':
				dst = append(dst, []byte{'\\', 'b'}...)
			case '\t':
				dst = append(dst, []byte{'\\', 't'}...)
			case '\n':
				dst = append(dst, []byte{'\\', 'n'}...)
			case '\f':
				dst = append(dst, []byte{'\\', 'f'}...)
			case '\r':
				dst = append(dst, []byte{'\\', 'r'}...)
			default:
				dst = append(dst, []byte{'\\', 'u', '0', '0', hexChar(c >> 4), hexChar(c & 0xf)}...)
			}
		default:
			dst = append(dst, c)
		}
	}
	dst = append(dst, '"')
	return dst
}

func hexChar(c byte) byte {
	if c < 10 {
		return '0' + c
	}
	return 'a' + c - 10
}

// isLowerHex reports whether s consists only of lowercase hex digits.
func isLowerHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// IsValid32ByteHex reports whether the given string is a lowercase hex
// encoding of 32 bytes, the format of event ids and public keys.
func IsValid32ByteHex(thing string) bool {
	return len(thing) == 64 && isLowerHex(thing)
}
