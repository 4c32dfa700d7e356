package sip

import (
	"encoding/json"
	"time"
)

// CurrentViewingKeyVersion is the only ViewingKeyExport wire version
// this core produces or accepts.
const CurrentViewingKeyVersion uint8 = 1

// GenerateViewingKey draws a fresh viewing private key for spendingPub
// and packages the exportable public record. Determinism (deriving the
// viewing key from a seed or path) is a caller concern.
func GenerateViewingKey(spendingPub *Point, chainTag ChainTag, network, label string) (*Scalar, *ViewingKeyExport, error) {
	viewingPriv, err := RandomScalar()
	if err != nil {
		return nil, nil, wrapErr(KindRngFailure, "viewingPriv", "failed to draw viewing key", err)
	}

	export := &ViewingKeyExport{
		Version:     CurrentViewingKeyVersion,
		ChainTag:    chainTag,
		Network:     network,
		ViewingPub:  viewingPriv.Point(),
		SpendingPub: spendingPub,
		Label:       label,
		CreatedAt:   time.Now().UTC(),
	}
	return viewingPriv, export, nil
}

// ExportViewingKey wraps the public components of a recipient's keys
// into a portable record. It never accepts or emits a private scalar.
func ExportViewingKey(viewingPub, spendingPub *Point, chainTag ChainTag, network, label string, createdAt time.Time, expiresAt *time.Time) *ViewingKeyExport {
	return &ViewingKeyExport{
		Version:     CurrentViewingKeyVersion,
		ChainTag:    chainTag,
		Network:     network,
		ViewingPub:  viewingPub,
		SpendingPub: spendingPub,
		Label:       label,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
	}
}

// ImportViewingKey validates a ViewingKeyExport: version must be the
// current version, chainTag must be non-empty, both public keys must
// already be valid decompressed points (the caller is expected to have
// produced them via DecompressPoint), and if present, ExpiresAt must not
// be the zero time.
func ImportViewingKey(export *ViewingKeyExport) error {
	if export.Version != CurrentViewingKeyVersion {
		return newErr(KindUnsupportedScheme, "version", "unrecognized viewing-key export version")
	}
	if export.ChainTag == "" {
		return newErr(KindInvalidMetaAddressFormat, "chainTag", "chain tag must not be empty")
	}
	if export.ViewingPub == nil {
		return newErr(KindInvalidPoint, "viewingPub", "viewing public key is required")
	}
	if export.SpendingPub == nil {
		return newErr(KindInvalidPoint, "spendingPub", "spending public key is required")
	}
	if export.ExpiresAt != nil && export.ExpiresAt.IsZero() {
		return newErr(KindInvalidMetaAddressFormat, "expiresAt", "expiry timestamp does not parse")
	}
	return nil
}

// ExportIsExpired reports whether export has an ExpiresAt set and it
// falls before now.
func ExportIsExpired(export *ViewingKeyExport, now time.Time) bool {
	return export.ExpiresAt != nil && export.ExpiresAt.Before(now)
}

// CheckPermission enforces a SharedViewingKey's scope against a
// requested block number and whether the caller is asking to view
// amounts. It fails closed: any violation returns a structured error,
// never a silent downgrade of what's disclosed.
func CheckPermission(shared *SharedViewingKey, blockNumber uint64, wantAmounts bool, now time.Time) error {
	if ExportIsExpired(&shared.ViewingKeyExport, now) {
		return newErr(KindExpired, "expiresAt", "viewing key export has expired")
	}

	perm := shared.Permissions
	if perm.BlockRange != nil {
		if perm.BlockRange.From > perm.BlockRange.To {
			return newErr(KindPermissionViolation, "blockRange", "from must be <= to")
		}
		if blockNumber < perm.BlockRange.From || blockNumber > perm.BlockRange.To {
			return newErr(KindPermissionViolation, "blockNumber", "block outside the granted range")
		}
	}

	if wantAmounts && !perm.CanViewAmounts {
		return newErr(KindPermissionViolation, "canViewAmounts", "amount visibility was not granted")
	}

	return nil
}

// RegistryHash computes a short, deterministic index for a viewing
// public key: sha256(compress(viewingPub)). It does not reveal the
// underlying key to a registry collaborator beyond the usual
// public-key linkability.
func RegistryHash(viewingPub *Point) [32]byte {
	compressed := viewingPub.Compress()
	return SHA256(compressed[:])
}

// viewingKeyExportWire is the reference JSON serialization for
// ViewingKeyExport (spec.md §6): object with keys version, chain,
// network, viewingPublicKey, spendingPublicKey, label?, createdAt,
// expiresAt?, hex values 0x-prefixed and timestamps ISO-8601 UTC via
// time.Time's own MarshalJSON.
type viewingKeyExportWire struct {
	Version           uint8      `json:"version"`
	ChainTag          string     `json:"chain"`
	Network           string     `json:"network"`
	ViewingPublicKey  string     `json:"viewingPublicKey"`
	SpendingPublicKey string     `json:"spendingPublicKey"`
	Label             string     `json:"label,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
}

// MarshalJSON renders e in the reference wire format.
func (e *ViewingKeyExport) MarshalJSON() ([]byte, error) {
	viewBytes := e.ViewingPub.Compress()
	spendBytes := e.SpendingPub.Compress()
	return json.Marshal(viewingKeyExportWire{
		Version:           e.Version,
		ChainTag:          e.ChainTag,
		Network:           e.Network,
		ViewingPublicKey:  BytesToHex(viewBytes[:]),
		SpendingPublicKey: BytesToHex(spendBytes[:]),
		Label:             e.Label,
		CreatedAt:         e.CreatedAt,
		ExpiresAt:         e.ExpiresAt,
	})
}

// UnmarshalJSON parses the reference wire format produced by
// MarshalJSON. It does not itself run ImportViewingKey's validation;
// callers that accept exports over the wire should still call
// ImportViewingKey on the result.
func (e *ViewingKeyExport) UnmarshalJSON(data []byte) error {
	var wire viewingKeyExportWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return wrapErr(KindInvalidMetaAddressFormat, "json", "malformed viewing-key export JSON", err)
	}

	viewPub, err := pointFromHex(wire.ViewingPublicKey)
	if err != nil {
		return wrapErr(KindInvalidPoint, "viewingPublicKey", "invalid viewing public key", err)
	}
	spendPub, err := pointFromHex(wire.SpendingPublicKey)
	if err != nil {
		return wrapErr(KindInvalidPoint, "spendingPublicKey", "invalid spending public key", err)
	}

	e.Version = wire.Version
	e.ChainTag = wire.ChainTag
	e.Network = wire.Network
	e.ViewingPub = viewPub
	e.SpendingPub = spendPub
	e.Label = wire.Label
	e.CreatedAt = wire.CreatedAt
	e.ExpiresAt = wire.ExpiresAt
	return nil
}

// pointFromHex decodes a 0x-prefixed, 33-byte compressed public key as
// produced by BytesToHex(Point.Compress()).
func pointFromHex(s string) (*Point, error) {
	raw, err := HexToBytes(s)
	if err != nil {
		return nil, wrapErr(KindInvalidPoint, "", "not a valid hex string", err)
	}
	if len(raw) != 33 {
		return nil, newErr(KindInvalidPoint, "", "compressed public key must be 33 bytes")
	}
	var b [33]byte
	copy(b[:], raw)
	return DecompressPoint(b)
}
