package nip19

import (
	"fmt"
	"strings"
)

// bech32 as specified by BIP-173, which is what NIP-19 builds its
// npub/nsec/note encodings on. The checksum target is the classic
// constant 1, applied symmetrically: createChecksum XORs the polymod
// with 1 and verifyChecksum requires the polymod of the full string to
// equal 1. (Two conventions circulate in the wild; only this one
// reproduces the published NIP-19 vectors.)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mga7"

var generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

func polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= generator[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	v := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		v = append(v, hrp[i]>>5)
	}
	v = append(v, 0)
	for i := 0; i < len(hrp); i++ {
		v = append(v, hrp[i]&31)
	}
	return v
}

func verifyChecksum(hrp string, data []byte) bool {
	return polymod(append(hrpExpand(hrp), data...)) == 1
}

func createChecksum(hrp string, data []byte) []byte {
	values := append(append(hrpExpand(hrp), data...), 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ 1
	ret := make([]byte, 6)
	for i := range ret {
		ret[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return ret
}

// encode assembles hrp + separator + data + checksum; data must already
// be in 5-bit groups.
func encode(hrp string, data []byte) (string, error) {
	combined := append(data, createChecksum(hrp, data)...)

	var b strings.Builder
	b.Grow(len(hrp) + 1 + len(combined))
	b.WriteString(hrp)
	b.WriteByte('1')
	for _, d := range combined {
		if d >= 32 {
			return "", fmt.Errorf("invalid data byte %d, expected 5-bit groups", d)
		}
		b.WriteByte(charset[d])
	}
	return b.String(), nil
}

// decode splits and checksum-verifies a bech32 string, returning the
// human-readable prefix and the 5-bit data groups (checksum stripped).
// Mixed case, characters outside the alphabet, a missing separator and
// a bad checksum all fail.
func decode(bech string) (string, []byte, error) {
	if lower := strings.ToLower(bech); lower != bech && strings.ToUpper(bech) != bech {
		return "", nil, fmt.Errorf("mixed case in string '%s'", bech)
	} else {
		bech = lower
	}

	pos := strings.LastIndexByte(bech, '1')
	if pos < 1 || pos+7 > len(bech) {
		return "", nil, fmt.Errorf("separator '1' at invalid position in '%s'", bech)
	}

	hrp := bech[:pos]
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", nil, fmt.Errorf("invalid character %q in prefix", hrp[i])
		}
	}

	data := make([]byte, 0, len(bech)-pos-1)
	for i := pos + 1; i < len(bech); i++ {
		d := strings.IndexByte(charset, bech[i])
		if d == -1 {
			return "", nil, fmt.Errorf("invalid character %q in data part", bech[i])
		}
		data = append(data, byte(d))
	}

	if !verifyChecksum(hrp, data) {
		return "", nil, fmt.Errorf("invalid checksum in '%s'", bech)
	}

	return hrp, data[:len(data)-6], nil
}

// convertBits regroups data from frombits-sized groups to tobits-sized
// ones, most significant bits first. With pad the final group is
// zero-padded; without it any leftover bits must be zero padding of
// less than one input group, anything else fails.
func convertBits(data []byte, frombits, tobits uint8, pad bool) ([]byte, error) {
	var acc uint32
	var bits uint8
	maxv := byte(1<<tobits - 1)
	out := make([]byte, 0, (len(data)*int(frombits)+int(tobits)-1)/int(tobits))

	for idx, value := range data {
		if value>>frombits != 0 {
			return nil, fmt.Errorf("invalid data range: data[%d]=%d (frombits=%d)", idx, value, frombits)
		}
		acc = acc<<frombits | uint32(value)
		bits += frombits
		for bits >= tobits {
			bits -= tobits
			out = append(out, byte(acc>>bits)&maxv)
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(tobits-bits))&maxv)
		}
	} else if bits >= frombits {
		return nil, fmt.Errorf("illegal zero padding")
	} else if byte(acc<<(tobits-bits))&maxv != 0 {
		return nil, fmt.Errorf("non-zero padding")
	}

	return out, nil
}
