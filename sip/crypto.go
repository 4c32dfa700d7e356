package sip

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"runtime"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// Scalar is an integer modulo n, the secp256k1 group order. It backs
// every private key, ephemeral key, and blinding factor in this package,
// which are kept in [1, n-1]; Pedersen commitment values built with
// ValueFromUint64/ValueFromBytes may also be zero.
// Scalars are never serialized in log output and must be wiped with Wipe
// once a caller is done with them.
type Scalar struct {
	s secp256k1.ModNScalar
}

// RandomScalar draws a uniformly random scalar in [1, n-1].
func RandomScalar() (*Scalar, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, wrapErr(KindRngFailure, "", "failed to draw random scalar", err)
	}
	return &Scalar{s: priv.Key}, nil
}

// ScalarFromBytes parses a 32-byte big-endian scalar, rejecting zero and
// values >= the group order.
func ScalarFromBytes(b [32]byte) (*Scalar, error) {
	var s secp256k1.ModNScalar
	overflow := s.SetByteSlice(b[:])
	if overflow {
		return nil, newErr(KindInvalidScalar, "", "scalar is >= the group order")
	}
	if s.IsZero() {
		return nil, newErr(KindInvalidScalar, "", "scalar is zero")
	}
	return &Scalar{s: s}, nil
}

// Bytes returns the 32-byte big-endian encoding of s.
func (s *Scalar) Bytes() [32]byte {
	b := s.s
	return *b.Bytes()
}

// Point returns s*G.
func (s *Scalar) Point() *Point {
	sc := s.s
	var jac secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&sc, &jac)
	jac.ToAffine()
	return &Point{pub: secp256k1.NewPublicKey(&jac.X, &jac.Y)}
}

// Add returns s + other mod n. Neither operand is mutated.
func (s *Scalar) Add(other *Scalar) *Scalar {
	a := s.s
	b := other.s
	sum := a.Add(&b)
	return &Scalar{s: *sum}
}

// Negate returns -s mod n. s is not mutated.
func (s *Scalar) Negate() *Scalar {
	a := s.s
	a.Negate()
	return &Scalar{s: a}
}

// IsZero reports whether s is the zero scalar.
func (s *Scalar) IsZero() bool { return s.s.IsZero() }

// Wipe zero-fills the scalar's backing bytes. Callers must invoke this on
// every transient secret scalar (ephemeral keys, recovered spending keys,
// blinding factors once consumed) before it goes out of scope, including
// on error-return paths. Go has no destructors, so this is an explicit
// call rather than a drop hook.
func (s *Scalar) Wipe() {
	if s == nil {
		return
	}
	s.s = secp256k1.ModNScalar{}
	runtime.KeepAlive(s)
}

// Point is a non-identity point on secp256k1, always held and compared in
// compressed form.
type Point struct {
	pub *secp256k1.PublicKey
}

// GeneratorG returns the secp256k1 base point.
func GeneratorG() *Point {
	return &Point{pub: secp256k1.Generator()}
}

// Compress returns the 33-byte compressed encoding (parity byte + X).
func (p *Point) Compress() [33]byte {
	var out [33]byte
	copy(out[:], p.pub.SerializeCompressed())
	return out
}

// DecompressPoint parses a 33-byte compressed point, rejecting a parity
// byte outside {0x02, 0x03}, an X coordinate >= the field prime, or an X
// with no valid square root (no point on the curve).
func DecompressPoint(b [33]byte) (*Point, error) {
	pub, err := secp256k1.ParsePubKey(b[:])
	if err != nil {
		return nil, wrapErr(KindInvalidPoint, "", "point does not decompress to a valid curve point", err)
	}
	return &Point{pub: pub}, nil
}

// Add returns p + other.
func (p *Point) Add(other *Point) *Point {
	var j1, j2, sum secp256k1.JacobianPoint
	p.pub.AsJacobian(&j1)
	other.pub.AsJacobian(&j2)
	secp256k1.AddNonConst(&j1, &j2, &sum)
	sum.ToAffine()
	return &Point{pub: secp256k1.NewPublicKey(&sum.X, &sum.Y)}
}

// Sub returns p - other.
func (p *Point) Sub(other *Point) *Point {
	var j1, j2, diff secp256k1.JacobianPoint
	p.pub.AsJacobian(&j1)
	other.pub.AsJacobian(&j2)
	j2.Y.Negate(1)
	j2.Y.Normalize()
	secp256k1.AddNonConst(&j1, &j2, &diff)
	diff.ToAffine()
	return &Point{pub: secp256k1.NewPublicKey(&diff.X, &diff.Y)}
}

// Mul returns s*p. It uses decred/dcrd's ScalarMultNonConst, which is not
// constant time: its running time may depend on the bits of s.
func (p *Point) Mul(s *Scalar) *Point {
	sc := s.s
	var j, result secp256k1.JacobianPoint
	p.pub.AsJacobian(&j)
	secp256k1.ScalarMultNonConst(&sc, &j, &result)
	result.ToAffine()
	return &Point{pub: secp256k1.NewPublicKey(&result.X, &result.Y)}
}

// Equal performs a constant-time comparison of two points' compressed
// encodings, per spec.md §9's requirement that the ownership check's
// stealth-point comparison not leak timing.
func (p *Point) Equal(other *Point) bool {
	a := p.Compress()
	b := other.Compress()
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// SHA256 computes the SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Keccak256 computes the Keccak-256 digest of data (the pre-NIST-finalization
// variant Ethereum uses, not SHA-3).
func Keccak256(data ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// EthAddressFromPoint derives an Ethereum address from a public key:
// decompress, drop the leading 0x04 tag, keccak256 the remaining 64
// bytes, take the last 20 bytes.
func EthAddressFromPoint(p *Point) [20]byte {
	uncompressed := p.pub.SerializeUncompressed()
	hash := Keccak256(uncompressed[1:])
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// EIP55Checksum applies the standard mixed-case checksum to a 20-byte
// Ethereum address and returns it with a 0x prefix.
func EIP55Checksum(addr [20]byte) string {
	addrHex := hex.EncodeToString(addr[:])
	checksumHash := Keccak256([]byte(addrHex))

	var b strings.Builder
	b.Grow(42)
	b.WriteString("0x")
	for i, c := range addrHex {
		if c >= '0' && c <= '9' {
			b.WriteByte(byte(c))
			continue
		}
		nibble := (checksumHash[i/2] >> (4 * (1 - uint(i%2)))) & 0x0f
		if nibble >= 8 {
			b.WriteByte(byte(c - 32))
		} else {
			b.WriteByte(byte(c))
		}
	}
	return b.String()
}

// HexToBytes decodes a hex string, accepting an optional 0x prefix.
func HexToBytes(hexStr string) ([]byte, error) {
	if len(hexStr) >= 2 && hexStr[0] == '0' && (hexStr[1] == 'x' || hexStr[1] == 'X') {
		hexStr = hexStr[2:]
	}
	return hex.DecodeString(hexStr)
}

// BytesToHex encodes data as a 0x-prefixed hex string.
func BytesToHex(data []byte) string {
	return "0x" + hex.EncodeToString(data)
}
