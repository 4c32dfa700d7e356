package sip

import (
	"encoding/hex"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	metaAddressPrefix = "st:eth:0x"
	metaAddressLen    = 141 // len(prefix) + 132 hex digits
	metaAddressHexLen = 132
)

// GenerateMetaAddress draws an independent spending and viewing keypair
// and packages the public halves into a MetaAddress. The only failure
// mode is RNG exhaustion.
func GenerateMetaAddress(chainTag ChainTag) (*MetaAddress, *StealthMetaSecrets, error) {
	spendingPriv, err := RandomScalar()
	if err != nil {
		return nil, nil, wrapErr(KindRngFailure, "spendingPriv", "failed to draw spending key", err)
	}
	viewingPriv, err := RandomScalar()
	if err != nil {
		spendingPriv.Wipe()
		return nil, nil, wrapErr(KindRngFailure, "viewingPriv", "failed to draw viewing key", err)
	}

	meta := &MetaAddress{
		SpendingPub: spendingPriv.Point(),
		ViewingPub:  viewingPriv.Point(),
		ChainTag:    chainTag,
	}
	secrets := &StealthMetaSecrets{SpendingPriv: spendingPriv, ViewingPriv: viewingPriv}
	return meta, secrets, nil
}

// EncodeMetaAddress renders a MetaAddress in the bit-exact text form
// "st:eth:0x" + 132 lowercase hex digits (141 chars total). Chain tag and
// label are context and never appear in the encoded bytes.
func EncodeMetaAddress(m *MetaAddress) string {
	spend := m.SpendingPub.Compress()
	view := m.ViewingPub.Compress()
	return metaAddressPrefix + hex.EncodeToString(spend[:]) + hex.EncodeToString(view[:])
}

// ParseMetaAddress parses the text form produced by EncodeMetaAddress.
// It rejects a wrong prefix, a length other than 141, non-hex characters,
// or key bytes that don't decompress to valid curve points.
func ParseMetaAddress(encoded string) (*MetaAddress, error) {
	if len(encoded) != metaAddressLen {
		return nil, newErr(KindInvalidMetaAddressFormat, "encoded",
			"must be exactly 141 characters")
	}
	if !strings.HasPrefix(encoded, metaAddressPrefix) {
		return nil, newErr(KindInvalidMetaAddressFormat, "encoded",
			"must start with st:eth:0x")
	}

	hexDigits := encoded[len(metaAddressPrefix):]
	raw, err := hex.DecodeString(hexDigits)
	if err != nil {
		return nil, wrapErr(KindInvalidMetaAddressFormat, "encoded", "non-hex characters", err)
	}
	if len(raw) != metaAddressHexLen/2 {
		return nil, newErr(KindInvalidMetaAddressFormat, "encoded", "unexpected decoded length")
	}

	var spendBytes, viewBytes [33]byte
	copy(spendBytes[:], raw[:33])
	copy(viewBytes[:], raw[33:])

	spendPub, err := DecompressPoint(spendBytes)
	if err != nil {
		return nil, wrapErr(KindInvalidMetaAddressFormat, "spendingKey", "invalid spending public key", err)
	}
	viewPub, err := DecompressPoint(viewBytes)
	if err != nil {
		return nil, wrapErr(KindInvalidMetaAddressFormat, "viewingKey", "invalid viewing public key", err)
	}

	return &MetaAddress{SpendingPub: spendPub, ViewingPub: viewPub}, nil
}

// GenerateStealthAddress is the sender-side one-shot stealth address
// derivation (spec.md §4.2):
//
//  1. ephPriv <- random, ephPub = ephPriv*G
//  2. S = ephPriv * spendingPub                     (ECDH)
//  3. h = sha256(compress(S))
//  4. stealthPub = viewingPub + h*G
//  5. viewTag = h[0]
//
// The shared secret is computed against the recipient's spending key
// while the stealth point is offset from the viewing key; swapping the
// two roles silently breaks ownership detection, so implementers must
// match this pairing exactly.
func GenerateStealthAddress(recipient *MetaAddress) (*StealthAddress, error) {
	ephPriv, err := RandomScalar()
	if err != nil {
		return nil, wrapErr(KindRngFailure, "ephemeralPriv", "failed to draw ephemeral key", err)
	}
	defer ephPriv.Wipe()

	ephPub := ephPriv.Point()
	shared := recipient.SpendingPub.Mul(ephPriv)
	sharedBytes := shared.Compress()
	h := SHA256(sharedBytes[:])

	stealthPub := recipient.ViewingPub.Add(scalarFromHash(h).Point())

	return &StealthAddress{
		StealthPub:   stealthPub,
		EphemeralPub: ephPub,
		ViewTag:      h[0],
	}, nil
}

// CheckOwnership is the receiver-side ownership check (spec.md §4.2):
// recompute the shared secret from the spending private key and the
// announced ephemeral public key, reject on view-tag mismatch (the
// expected ~255/256 fast path), otherwise derive the expected stealth
// public key from the viewing private key and compare in constant time.
//
// Only a view-tag or full-check disagreement returns (false, nil); any
// other failure (malformed point, invalid scalar) is returned as an
// error and must not be silently treated as "not mine".
func CheckOwnership(stealth *StealthAddress, secrets *StealthMetaSecrets) (bool, error) {
	expectedPriv, h := deriveExpectedPriv(stealth.EphemeralPub, secrets)
	defer expectedPriv.Wipe()

	if h[0] != stealth.ViewTag {
		return false, nil
	}

	expectedPub := expectedPriv.Point()
	return expectedPub.Equal(stealth.StealthPub), nil
}

// RecoverSpendingKey derives the one-time private key for a stealth
// address this recipient owns. It shares the first three steps of
// CheckOwnership (spec.md §4.2) but returns the scalar itself instead of
// a boolean; the caller is responsible for wiping the returned scalar
// after use (e.g. after signing).
//
// Callers that have not already confirmed ownership via CheckOwnership
// should do so first — RecoverSpendingKey does not itself verify that
// the derived key corresponds to stealth.StealthPub.
func RecoverSpendingKey(stealth *StealthAddress, secrets *StealthMetaSecrets) (*Scalar, error) {
	expectedPriv, _ := deriveExpectedPriv(stealth.EphemeralPub, secrets)
	return expectedPriv, nil
}

// CheckOwnershipByAddress is the address-based ownership check for
// announcements that carry only a 20-byte Ethereum address rather than
// the full compressed stealth public key (spec.md §4.2). It runs
// recovery, derives the Ethereum address of the recovered public key,
// and compares to the announced address case-insensitively.
func CheckOwnershipByAddress(ethAddress [20]byte, ephemeralPub *Point, viewTag byte, secrets *StealthMetaSecrets) (bool, error) {
	expectedPriv, h := deriveExpectedPriv(ephemeralPub, secrets)
	defer expectedPriv.Wipe()

	if h[0] != viewTag {
		return false, nil
	}

	expectedAddr := EthAddressFromPoint(expectedPriv.Point())
	return strings.EqualFold(hex.EncodeToString(expectedAddr[:]), hex.EncodeToString(ethAddress[:])), nil
}

// deriveExpectedPriv computes S = spendingPriv*ephPub, h = sha256(compress(S)),
// and expectedPriv = (viewingPriv + h) mod n — the shared first three
// steps of the receiver-side ownership check and key recovery.
func deriveExpectedPriv(ephPub *Point, secrets *StealthMetaSecrets) (*Scalar, [32]byte) {
	shared := ephPub.Mul(secrets.SpendingPriv)
	sharedBytes := shared.Compress()
	h := SHA256(sharedBytes[:])
	return secrets.ViewingPriv.Add(scalarFromHash(h)), h
}

// scalarFromHash reduces a 32-byte hash into a scalar mod n. Unlike
// ScalarFromBytes, a value that happens to be >= n is reduced rather
// than rejected — the construction hashes arbitrary shared-secret points
// into the scalar field and a uniform 256-bit hash is vanishingly
// unlikely to be zero or to land outside [0, n), but it is not subject
// to the strict "reject out-of-range input" rule that applies to
// user-supplied scalars.
func scalarFromHash(h [32]byte) *Scalar {
	var s secp256k1.ModNScalar
	s.SetByteSlice(h[:])
	return &Scalar{s: s}
}
