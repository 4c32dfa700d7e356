package sip

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// hDomain separates the NUMS search for H from any other hash-to-curve
// use in this package.
const hDomain = "SIP-PEDERSEN-GENERATOR-H-v1"

var generatorH = generateH()

// generateH derives the independent Pedersen generator H with a
// nothing-up-my-sleeve construction: hash counter-suffixed domain strings
// until one lands on a valid compressed point. No discrete log relating
// H to G is known to anyone, which is the property Commit's hiding
// guarantee depends on.
func generateH() *Point {
	for counter := 0; counter < 256; counter++ {
		input := fmt.Sprintf("%s:%d", hDomain, counter)
		hash := sha256.Sum256([]byte(input))

		candidate := make([]byte, 33)
		candidate[0] = 0x02 // compressed, even y
		copy(candidate[1:], hash[:])

		pub, err := secp256k1.ParsePubKey(candidate)
		if err == nil {
			return &Point{pub: pub}
		}
	}
	panic("sip: failed to derive Pedersen generator H after 256 attempts")
}

// GeneratorH returns the independent Pedersen generator.
func GeneratorH() *Point { return generatorH }

// ValueFromUint64 wraps a uint64 amount as a commitment value. Unlike
// ScalarFromBytes (for key-like scalars), zero is permitted: spec.md
// §4.3 allows committing to v = 0 (see CommitZero).
func ValueFromUint64(v uint64) *Scalar {
	var b [32]byte
	b[24] = byte(v >> 56)
	b[25] = byte(v >> 48)
	b[26] = byte(v >> 40)
	b[27] = byte(v >> 32)
	b[28] = byte(v >> 24)
	b[29] = byte(v >> 16)
	b[30] = byte(v >> 8)
	b[31] = byte(v)

	var s secp256k1.ModNScalar
	s.SetByteSlice(b[:]) // 2^64-1 < n, so this never overflows
	return &Scalar{s: s}
}

// ValueFromBytes parses a 32-byte big-endian commitment value, allowing
// zero but rejecting any value >= the group order (ValueOutOfRange).
func ValueFromBytes(b [32]byte) (*Scalar, error) {
	var s secp256k1.ModNScalar
	overflow := s.SetByteSlice(b[:])
	if overflow {
		return nil, newErr(KindValueOutOfRange, "value", "value is >= the group order")
	}
	return &Scalar{s: s}, nil
}

// Commit creates a Pedersen commitment to value with a freshly drawn
// random blinding factor: C = value*G + blinding*H.
func Commit(value *Scalar) (*PedersenCommitment, error) {
	blinding, err := GenerateBlinding()
	if err != nil {
		return nil, err
	}
	return CommitWithBlinding(value, blinding)
}

// CommitWithBlinding creates a Pedersen commitment to value using a
// caller-supplied blinding factor. A zero blinding factor is rejected:
// it collapses C to value*G, which leaks value to anyone who recognizes
// the point.
func CommitWithBlinding(value *Scalar, blinding *Scalar) (*PedersenCommitment, error) {
	if blinding.IsZero() {
		return nil, newErr(KindInvalidScalar, "blinding", "blinding factor must not be zero")
	}

	// value*G is the point at infinity when value is zero; the curve
	// library's point addition is not guaranteed well-behaved on an
	// infinity operand, so that term is dropped algebraically instead of
	// computed and added.
	var c *Point
	if value.IsZero() {
		c = generatorH.Mul(blinding)
	} else {
		c = GeneratorG().Mul(value).Add(generatorH.Mul(blinding))
	}

	return &PedersenCommitment{C: c, Blinding: blinding}, nil
}

// CommitZero creates a commitment to the zero value: C = blinding*H.
// Used to blind an amount that is deliberately disclosed as zero (e.g. a
// placeholder commitment in a multi-output transfer).
func CommitZero(blinding *Scalar) (*PedersenCommitment, error) {
	var zero Scalar
	return CommitWithBlinding(&zero, blinding)
}

// VerifyOpening reports whether commitment opens to value under its own
// blinding factor: recomputes value*G + commitment.Blinding*H and compares
// to commitment.C.
func VerifyOpening(commitment *PedersenCommitment, value *Scalar) bool {
	var expected *Point
	if value.IsZero() {
		expected = generatorH.Mul(commitment.Blinding)
	} else {
		expected = GeneratorG().Mul(value).Add(generatorH.Mul(commitment.Blinding))
	}
	return expected.Equal(commitment.C)
}

// IsZero reports whether commitment opens to the value zero under its
// own blinding factor (spec.md §4.3: isZero(C, r) = verifyOpen(C, 0, r)).
func (c *PedersenCommitment) IsZero() bool {
	var zero Scalar
	return VerifyOpening(c, &zero)
}

// AddCommitments adds two commitments homomorphically:
// (v1*G + r1*H) + (v2*G + r2*H) = (v1+v2)*G + (r1+r2)*H.
//
// The returned commitment's Blinding is only populated when both inputs
// carry their blinding factor; a commitment received from a counterparty
// (blinding withheld) propagates a nil Blinding, which is the signal that
// this side cannot open the sum without an out-of-band disclosure.
func AddCommitments(c1, c2 *PedersenCommitment) *PedersenCommitment {
	sum := &PedersenCommitment{C: c1.C.Add(c2.C)}
	if c1.Blinding != nil && c2.Blinding != nil {
		sum.Blinding = c1.Blinding.Add(c2.Blinding)
	}
	return sum
}

// SubtractCommitments subtracts two commitments homomorphically:
// (v1*G + r1*H) - (v2*G + r2*H) = (v1-v2)*G + (r1-r2)*H.
func SubtractCommitments(c1, c2 *PedersenCommitment) *PedersenCommitment {
	diff := &PedersenCommitment{C: c1.C.Sub(c2.C)}
	if c1.Blinding != nil && c2.Blinding != nil {
		diff.Blinding = c1.Blinding.Add(c2.Blinding.Negate())
	}
	return diff
}

// AddBlindings adds two blinding factors mod n, for callers tracking
// commitment sums independently of AddCommitments.
func AddBlindings(b1, b2 *Scalar) *Scalar { return b1.Add(b2) }

// SubtractBlindings subtracts two blinding factors mod n.
func SubtractBlindings(b1, b2 *Scalar) *Scalar { return b1.Add(b2.Negate()) }

// GenerateBlinding draws a uniformly random nonzero blinding factor.
func GenerateBlinding() (*Scalar, error) {
	s, err := RandomScalar()
	if err != nil {
		return nil, wrapErr(KindRngFailure, "blinding", "failed to draw blinding factor", err)
	}
	return s, nil
}

// Generators reports the two base points a verifier needs to check
// openings or to plug this commitment scheme into a downstream
// zero-knowledge proof system.
type Generators struct {
	G *Point
	H *Point
}

// GetGenerators returns the G/H pair used throughout this package.
func GetGenerators() Generators {
	return Generators{G: GeneratorG(), H: generatorH}
}

// CommitToken commits value for a token-denominated transfer, annotating the
// resulting PedersenCommitment with display metadata. The commitment
// itself is identical to Commit's output; decimals and token address
// never enter the cryptographic computation.
func CommitToken(value *Scalar, tokenAddress [20]byte, decimals uint8) (*TokenCommitment, error) {
	base, err := Commit(value)
	if err != nil {
		return nil, err
	}
	return &TokenCommitment{
		PedersenCommitment: *base,
		TokenAddress:       tokenAddress,
		Decimals:           decimals,
	}, nil
}
