// Package keeloq implements the KeeLoq block cipher variant used to derive
// numeric access codes. The transform is a 528-round non-linear feedback
// shift register over a 32-bit state, keyed by a 64-bit key split into two
// 32-bit words.
//
// The transform is a bit-exact wire contract, including the byte-order
// reversal of the plaintext before encryption and of the ciphertext
// afterwards. Codes minted by other deployments must verify here and vice
// versa, so none of these quirks are negotiable.
package keeloq

import "math/bits"

// Rounds is the number of NLFSR rounds per encryption.
const Rounds = 528

// nlf is the 32-entry non-linear function table packed into a word. The
// feedback bit for a round is bit (16a+8b+4c+2d+e) of this constant, where
// a..e are state bits 31, 26, 20, 9 and 1.
const nlf = 0x3A5C742E

// Key schedule constants XORed against the secret's digits.
var (
	keyConstN = [4]byte{133, 103, 37, 67}
	keyConstT = [4]byte{68, 84, 25, 55}
)

// SecretDigits is the fixed length the admin secret is normalised to before
// key derivation. Shorter secrets are right-padded with '0'; longer ones are
// truncated.
const SecretDigits = 8

// Encrypt runs the 528-round KeeLoq transform of data under (key1, key2).
// Key bits cycle through the 64 positions round-robin: rounds 0..31 draw from
// key1, rounds 32..63 from key2, then the cycle repeats.
func Encrypt(data, key1, key2 uint32) uint32 {
	n := data
	for round := 0; round < Rounds; round++ {
		idx := bit(n, 31)<<4 | bit(n, 26)<<3 | bit(n, 20)<<2 | bit(n, 9)<<1 | bit(n, 1)
		fb := uint32(nlf) >> idx & 1

		var keyBit uint32
		if pos := round % 64; pos < 32 {
			keyBit = bit(key1, uint(pos))
		} else {
			keyBit = bit(key2, uint(pos-32))
		}

		fb ^= bit(n, 16) ^ bit(n, 0) ^ keyBit
		n = n>>1 | fb<<31
	}
	return n
}

func bit(v uint32, i uint) uint32 { return v >> i & 1 }

// DeriveKeys builds the 64-bit key from an admin secret. The secret is
// normalised to exactly 8 ASCII digits, each digit is XORed against a fixed
// constant byte, and the results are packed little-endian into two words.
// Non-digit characters contribute the value zero rather than failing.
func DeriveKeys(secret string) (key1, key2 uint32) {
	var digits [SecretDigits]byte
	for i := range digits {
		if i < len(secret) && secret[i] >= '0' && secret[i] <= '9' {
			digits[i] = secret[i] - '0'
		}
	}

	for i := 0; i < 4; i++ {
		key1 |= uint32(keyConstN[i]^digits[i]) << (8 * i)
		key2 |= uint32(keyConstT[i]^digits[i+4]) << (8 * i)
	}
	return key1, key2
}

// Encode produces the raw 32-bit code word for a cipher input under the given
// secret. The input's byte order is reversed going in and the ciphertext's
// byte order is reversed coming out; both reversals are part of the code
// format.
func Encode(input uint32, secret string) uint32 {
	key1, key2 := DeriveKeys(secret)
	return bits.ReverseBytes32(Encrypt(bits.ReverseBytes32(input), key1, key2))
}
