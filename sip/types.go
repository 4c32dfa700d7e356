// Package sip implements the cryptographic core of an EIP-5564-compatible
// stealth-payments scheme over secp256k1: stealth meta-addresses, one-time
// stealth address derivation, view-tag-accelerated scanning, Pedersen
// commitments, on-chain announcement encoding, and scoped viewing keys.
//
// The package builds and parses logical records only — it never fetches
// chain logs, submits transactions, estimates gas, or talks to a wallet.
package sip

import "time"

// ChainTag identifies the chain family a meta-address was minted for
// (e.g. "eth", "evm", "near"). It is carried alongside a MetaAddress but,
// per the EIP-5564 text encoding, is never part of the encoded bytes.
type ChainTag = string

// MetaAddress is a recipient's long-lived, publicly shareable stealth
// meta-address: an independent spending and viewing public key.
type MetaAddress struct {
	SpendingPub *Point
	ViewingPub  *Point
	ChainTag    ChainTag
	Label       string
}

// StealthMetaSecrets holds the private counterparts of a MetaAddress.
// These never leave the process that generated them; SpendingPriv is
// required to spend from any stealth address derived under this
// meta-address, ViewingPriv alone suffices to scan for them.
type StealthMetaSecrets struct {
	SpendingPriv *Scalar
	ViewingPriv  *Scalar
}

// Wipe zero-fills both secret scalars.
func (s *StealthMetaSecrets) Wipe() {
	if s == nil {
		return
	}
	s.SpendingPriv.Wipe()
	s.ViewingPriv.Wipe()
}

// StealthAddress is a one-time, per-payment public key together with the
// ephemeral public key the recipient needs to reconstruct the shared
// secret, and the view tag that lets a scanner cheaply reject it.
type StealthAddress struct {
	StealthPub   *Point
	EphemeralPub *Point
	ViewTag      byte
}

// Recipient is a scanning registration. The full ownership check and
// spending-key recovery (spec.md §4.2) need both the viewing and the
// spending private key — a registration holding only a spending public
// key cannot perform them, so Recipient carries SpendingPriv explicitly
// rather than standing a public key in for it.
type Recipient struct {
	ViewingPriv  *Scalar
	SpendingPriv *Scalar
	Label        string
}

// secrets views a Recipient as StealthMetaSecrets for the C2 ownership
// check and recovery functions.
func (r *Recipient) secrets() *StealthMetaSecrets {
	return &StealthMetaSecrets{SpendingPriv: r.SpendingPriv, ViewingPriv: r.ViewingPriv}
}

// Wipe zero-fills both of the recipient's private scalars.
func (r *Recipient) Wipe() {
	if r == nil {
		return
	}
	r.SpendingPriv.Wipe()
	r.ViewingPriv.Wipe()
}

// DetectedPayment is emitted by the scanner for every announcement that
// matched a registered recipient.
type DetectedPayment struct {
	Announcement         Announcement
	RecipientLabel       string
	RecoveredSpendingKey *Scalar
}

// PedersenCommitment is C = v*G + r*H together with its blinding factor.
// The blinding factor is never published on-chain; it travels through an
// encrypted metadata channel or off-channel entirely.
type PedersenCommitment struct {
	C        *Point
	Blinding *Scalar
}

// TokenCommitment is a PedersenCommitment annotated with ERC-20-flavored
// display metadata. It is cryptographically identical to PedersenCommitment;
// the extra fields exist for UX only.
type TokenCommitment struct {
	PedersenCommitment
	TokenAddress [20]byte
	Decimals     uint8
}

// AnnouncementMetadata is the version-prefixed metadata sub-format carried
// in an Announcement's dynamic metadata bytes (spec.md §4.4/§6).
type AnnouncementMetadata struct {
	Version uint8

	HasToken     bool
	TokenAddress [20]byte // all-zero = native asset

	HasAmountCommitment bool
	AmountCommitment    [33]byte // compressed point

	HasBlindingHash bool
	BlindingHash    [32]byte

	ExtraData []byte
}

// TxRef identifies the on-chain log an Announcement was parsed from.
type TxRef struct {
	TxHash      [32]byte
	BlockNumber uint64
	LogIndex    uint64
}

// Announcement is the parsed on-chain stealth-payment announcement.
type Announcement struct {
	SchemeID          uint32
	StealthEthAddress [20]byte
	Caller            [20]byte
	EphemeralPub      *Point
	ViewTag           byte
	Metadata          []byte
	TxRef             TxRef
}

// LogRecord is the logical shape of a single chain log entry — the input
// to ParseAnnouncementLog. The core only parses records of this shape;
// fetching them is a collaborator's job (spec.md §6, "Log source").
type LogRecord struct {
	Address         [20]byte
	Topics          [][32]byte
	Data            []byte
	BlockNumber     uint64
	TransactionHash [32]byte
	LogIndex        uint64
}

// ViewingKeyExport is the portable, public-only record a recipient shares
// with a scanning collaborator or registry. It never carries a private
// scalar.
type ViewingKeyExport struct {
	Version     uint8
	ChainTag    ChainTag
	Network     string
	ViewingPub  *Point
	SpendingPub *Point
	Label       string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

// BlockRange constrains scanning to an inclusive range of block numbers.
type BlockRange struct {
	From uint64
	To   uint64
}

// Permissions scopes what a SharedViewingKey holder is allowed to see.
type Permissions struct {
	CanViewIncoming bool
	CanViewOutgoing bool
	CanViewAmounts  bool
	BlockRange      *BlockRange
}

// SharedViewingKey is a ViewingKeyExport plus the permission scope an
// auditor or compliance collaborator was granted.
type SharedViewingKey struct {
	ViewingKeyExport
	Permissions Permissions
}
