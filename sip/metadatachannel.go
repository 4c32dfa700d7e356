package sip

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"
)

// disclosureKeyDomain separates the metadata-channel symmetric key from
// any other use of SHA-256 over a viewing private key.
const disclosureKeyDomain = "SIP-BLINDING-DISCLOSURE-v1"

// BlindingDisclosure is what a sender hands an auditor with
// canViewAmounts permission (spec.md §4.6) through the external channel
// the core does not itself transport: enough to open the Pedersen
// commitment on a specific announcement's amount.
type BlindingDisclosure struct {
	TokenAddress [20]byte
	Value        *Scalar
	Blinding     *Scalar
}

// EncryptedDisclosure is a BlindingDisclosure sealed for one recipient's
// viewing key.
type EncryptedDisclosure struct {
	Nonce      [chacha20poly1305.NonceSizeX]byte
	Ciphertext []byte
}

// disclosureKey derives the symmetric key used to seal blinding
// disclosures for a recipient: sha256(domain || viewingPriv). Only a
// holder of viewingPriv can reach this key; the public viewingPub does
// not suffice.
func disclosureKey(viewingPriv *Scalar) [32]byte {
	privBytes := viewingPriv.Bytes()
	return SHA256(append([]byte(disclosureKeyDomain), privBytes[:]...))
}

// sealDisclosure serializes a BlindingDisclosure as tokenAddress(20) ||
// value(32) || blinding(32) and seals it with XChaCha20-Poly1305 under
// the recipient's disclosure key.
func sealDisclosure(viewingPriv *Scalar, d *BlindingDisclosure) (*EncryptedDisclosure, error) {
	key := disclosureKey(viewingPriv)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, wrapErr(KindRngFailure, "", "failed to construct disclosure cipher", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, wrapErr(KindRngFailure, "nonce", "failed to draw disclosure nonce", err)
	}

	valueBytes := d.Value.Bytes()
	blindingBytes := d.Blinding.Bytes()
	plaintext := make([]byte, 0, 20+32+32)
	plaintext = append(plaintext, d.TokenAddress[:]...)
	plaintext = append(plaintext, valueBytes[:]...)
	plaintext = append(plaintext, blindingBytes[:]...)

	ciphertext := aead.Seal(nil, nonce[:], plaintext, nil)
	return &EncryptedDisclosure{Nonce: nonce, Ciphertext: ciphertext}, nil
}

// EncryptBlindingDisclosure seals a BlindingDisclosure for delivery to
// the holder of viewingPriv over an out-of-band channel (spec.md §4.6:
// "the auditor additionally receives the blinding factors through an
// external channel, not part of this core" — this is that channel's
// cryptography, not its transport).
func EncryptBlindingDisclosure(viewingPriv *Scalar, d *BlindingDisclosure) (*EncryptedDisclosure, error) {
	return sealDisclosure(viewingPriv, d)
}

// DecryptBlindingDisclosure opens a disclosure sealed for viewingPriv's
// holder.
func DecryptBlindingDisclosure(viewingPriv *Scalar, enc *EncryptedDisclosure) (*BlindingDisclosure, error) {
	key := disclosureKey(viewingPriv)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, wrapErr(KindRngFailure, "", "failed to construct disclosure cipher", err)
	}

	plaintext, err := aead.Open(nil, enc.Nonce[:], enc.Ciphertext, nil)
	if err != nil {
		return nil, wrapErr(KindPermissionViolation, "ciphertext", "disclosure did not decrypt under this viewing key", err)
	}
	if len(plaintext) != 20+32+32 {
		return nil, newErr(KindInvalidAnnouncementLayout, "plaintext", "unexpected disclosure payload length")
	}

	var tokenAddress [20]byte
	copy(tokenAddress[:], plaintext[:20])

	var valueBytes, blindingBytes [32]byte
	copy(valueBytes[:], plaintext[20:52])
	copy(blindingBytes[:], plaintext[52:84])

	value, err := ValueFromBytes(valueBytes)
	if err != nil {
		return nil, err
	}
	blinding, err := ScalarFromBytes(blindingBytes)
	if err != nil {
		return nil, err
	}

	return &BlindingDisclosure{TokenAddress: tokenAddress, Value: value, Blinding: blinding}, nil
}

// RegistryHashForDisclosure derives the same sha256(compress(viewingPub))
// index RegistryHash produces, so a disclosure-channel collaborator can
// correlate a sealed payload to the registry entry it was sealed for
// without seeing the recipient's private key.
func RegistryHashForDisclosure(viewingPub *Point) [32]byte {
	return RegistryHash(viewingPub)
}
