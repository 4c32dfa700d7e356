package sip

import (
	"encoding/binary"
)

// announceSelector is the first four bytes of
// keccak256("announce(uint256,address,bytes,bytes)").
var announceSelector = [4]byte{0x3f, 0x62, 0xa9, 0xe6}

// eventSignature is the canonical signature string whose keccak-256 is
// topic[0] of every Announcement event.
const eventSignature = "Announcement(uint256,address,address,bytes,bytes)"

// MetadataVersion1 is the only metadata sub-format this core understands.
const MetadataVersion1 uint8 = 1

const abiWordLen = 32

// abiWordFromUint64 left-pads a uint64 into a 32-byte big-endian ABI word.
func abiWordFromUint64(v uint64) [32]byte {
	var w [32]byte
	binary.BigEndian.PutUint64(w[24:], v)
	return w
}

// abiWordFromAddress left-pads a 20-byte address into a 32-byte ABI word.
func abiWordFromAddress(addr [20]byte) [32]byte {
	var w [32]byte
	copy(w[12:], addr[:])
	return w
}

// uint64FromABIWord extracts a uint64 from a 32-byte ABI word, failing if
// any of the high 24 bytes are nonzero (the value does not fit uint64,
// let alone the uint32 schemeId range this core uses).
func uint64FromABIWord(w [32]byte) (uint64, bool) {
	for _, b := range w[:24] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.BigEndian.Uint64(w[24:]), true
}

// addressFromABIWord extracts the low 20 bytes of a 32-byte left-padded
// ABI word.
func addressFromABIWord(w [32]byte) [20]byte {
	var addr [20]byte
	copy(addr[:], w[12:])
	return addr
}

// abiEncodeBytes packs a dynamic bytes value as a 32-byte length word
// followed by the data, right-padded with zeros to a 32-byte boundary.
func abiEncodeBytes(data []byte) []byte {
	lenWord := abiWordFromUint64(uint64(len(data)))
	paddedLen := ((len(data) + 31) / 32) * 32

	out := make([]byte, 0, 32+paddedLen)
	out = append(out, lenWord[:]...)
	out = append(out, data...)
	out = append(out, make([]byte, paddedLen-len(data))...)
	return out
}

// abiDecodeBytesAt reads a dynamic bytes value whose region starts at
// offset within data: a 32-byte length word followed by that many data
// bytes (ignoring the trailing zero padding).
func abiDecodeBytesAt(data []byte, offset uint64) ([]byte, error) {
	if offset+32 > uint64(len(data)) {
		return nil, newErr(KindInvalidAnnouncementLayout, "offset", "dynamic bytes offset out of range")
	}
	var lenWord [32]byte
	copy(lenWord[:], data[offset:offset+32])
	n, ok := uint64FromABIWord(lenWord)
	if !ok {
		return nil, newErr(KindInvalidAnnouncementLayout, "length", "dynamic bytes length overflows uint64")
	}
	start := offset + 32
	if start+n > uint64(len(data)) {
		return nil, newErr(KindInvalidAnnouncementLayout, "length", "dynamic bytes length exceeds payload")
	}
	return data[start : start+n], nil
}

// EncodeAnnouncementCallData builds the call-data for the announcer
// contract's announce(uint256,address,bytes,bytes) function: selector,
// schemeId, stealthEthAddress, then the two dynamic bytes arguments
// (ephemeralPubKey, metadata) laid out offsets-then-data per the
// canonical EVM ABI.
func EncodeAnnouncementCallData(schemeID uint32, stealthEthAddress [20]byte, ephemeralPubKey [33]byte, metadata []byte) []byte {
	const headWords = 4 // schemeId, stealthEthAddress, offset1, offset2
	offset1 := uint64(headWords * abiWordLen)

	ephEncoded := abiEncodeBytes(ephemeralPubKey[:])
	offset2 := offset1 + uint64(len(ephEncoded))
	metaEncoded := abiEncodeBytes(metadata)

	schemeWord := abiWordFromUint64(uint64(schemeID))
	addrWord := abiWordFromAddress(stealthEthAddress)
	offset1Word := abiWordFromUint64(offset1)
	offset2Word := abiWordFromUint64(offset2)

	out := make([]byte, 0, 4+headWords*abiWordLen+len(ephEncoded)+len(metaEncoded))
	out = append(out, announceSelector[:]...)
	out = append(out, schemeWord[:]...)
	out = append(out, addrWord[:]...)
	out = append(out, offset1Word[:]...)
	out = append(out, offset2Word[:]...)
	out = append(out, ephEncoded...)
	out = append(out, metaEncoded...)
	return out
}

// ParseAnnouncementCallData is the inverse of EncodeAnnouncementCallData.
// It does not validate the leading selector bytes — callers that read
// call-data off the wire are expected to route on the selector
// themselves before calling this.
func ParseAnnouncementCallData(data []byte) (schemeID uint32, stealthEthAddress [20]byte, ephemeralPubKey [33]byte, metadata []byte, err error) {
	if len(data) < 4+4*abiWordLen {
		err = newErr(KindInvalidAnnouncementLayout, "data", "call-data shorter than the fixed head")
		return
	}
	body := data[4:]

	var schemeWord, addrWord, offset1Word, offset2Word [32]byte
	copy(schemeWord[:], body[0:32])
	copy(addrWord[:], body[32:64])
	copy(offset1Word[:], body[64:96])
	copy(offset2Word[:], body[96:128])

	schemeU64, ok := uint64FromABIWord(schemeWord)
	if !ok || schemeU64 > 0xFFFFFFFF {
		err = newErr(KindInvalidAnnouncementLayout, "schemeId", "schemeId overflows uint32")
		return
	}
	schemeID = uint32(schemeU64)
	stealthEthAddress = addressFromABIWord(addrWord)

	offset1, ok := uint64FromABIWord(offset1Word)
	if !ok {
		err = newErr(KindInvalidAnnouncementLayout, "offset1", "malformed ABI offset")
		return
	}
	offset2, ok := uint64FromABIWord(offset2Word)
	if !ok {
		err = newErr(KindInvalidAnnouncementLayout, "offset2", "malformed ABI offset")
		return
	}

	ephBytes, derr := abiDecodeBytesAt(body, offset1)
	if derr != nil {
		err = derr
		return
	}
	if len(ephBytes) != 33 {
		err = newErr(KindInvalidAnnouncementLayout, "ephemeralPubKey", "must be exactly 33 bytes")
		return
	}
	copy(ephemeralPubKey[:], ephBytes)

	metadata, derr = abiDecodeBytesAt(body, offset2)
	if derr != nil {
		err = derr
		return
	}
	return
}

// EventSignatureHash returns topic[0] for every Announcement event: the
// keccak-256 of the canonical event signature string.
func EventSignatureHash() [32]byte {
	return Keccak256([]byte(eventSignature))
}

// BuildTopics constructs the log-query topic filter
// [eventSignatureHash, ?schemeId, ?stealthEthAddress, ?caller]. A nil
// filter argument leaves the corresponding topic unconstrained (nil
// entry in the returned slice).
func BuildTopics(schemeID *uint32, stealthEthAddress, caller *[20]byte) []*[32]byte {
	topics := make([]*[32]byte, 4)
	sig := EventSignatureHash()
	topics[0] = &sig

	if schemeID != nil {
		w := abiWordFromUint64(uint64(*schemeID))
		topics[1] = &w
	}
	if stealthEthAddress != nil {
		w := abiWordFromAddress(*stealthEthAddress)
		topics[2] = &w
	}
	if caller != nil {
		w := abiWordFromAddress(*caller)
		topics[3] = &w
	}
	return topics
}

// EncodeAnnouncementLogData packs an event's non-indexed data region: the
// two dynamic bytes fields (ephemeralPubKey, metadata), laid out exactly
// as the canonical EVM ABI encodes a `(bytes,bytes)` tuple — a two-word
// offset head (relative to the start of this region) followed by the two
// length-prefixed, 32-byte-padded data regions in order (spec.md §4.4).
// This is the same offsets-then-data rule EncodeAnnouncementCallData
// applies to its own two `bytes` arguments, minus that function's two
// leading static words (schemeId, stealthEthAddress are indexed topics
// here, not part of the data region).
func EncodeAnnouncementLogData(ephemeralPubKey [33]byte, metadata []byte) []byte {
	const headWords = 2
	offset1 := uint64(headWords * abiWordLen)

	ephEncoded := abiEncodeBytes(ephemeralPubKey[:])
	offset2 := offset1 + uint64(len(ephEncoded))
	metaEncoded := abiEncodeBytes(metadata)

	offset1Word := abiWordFromUint64(offset1)
	offset2Word := abiWordFromUint64(offset2)

	out := make([]byte, 0, headWords*abiWordLen+len(ephEncoded)+len(metaEncoded))
	out = append(out, offset1Word[:]...)
	out = append(out, offset2Word[:]...)
	out = append(out, ephEncoded...)
	out = append(out, metaEncoded...)
	return out
}

// ParseAnnouncementLog parses a single chain log record into an
// Announcement. It requires at least four topics (signature + three
// indexed slots) and decodes the non-indexed data region as the two
// dynamic bytes fields (ephemeralPubKey, metadata), laid out as
// EncodeAnnouncementLogData produces them: a two-word offset head
// followed by the two dynamic regions.
func ParseAnnouncementLog(rec LogRecord) (*Announcement, error) {
	if len(rec.Topics) < 4 {
		return nil, newErr(KindInvalidAnnouncementLayout, "topics", "fewer than four indexed slots")
	}

	schemeU64, ok := uint64FromABIWord(rec.Topics[1])
	if !ok || schemeU64 > 0xFFFFFFFF {
		return nil, newErr(KindInvalidAnnouncementLayout, "schemeId", "schemeId overflows uint32")
	}

	stealthEthAddress := addressFromABIWord(rec.Topics[2])
	caller := addressFromABIWord(rec.Topics[3])

	if len(rec.Data) < 2*abiWordLen {
		return nil, newErr(KindInvalidAnnouncementLayout, "data", "shorter than the two-word offset head")
	}
	var offset1Word, offset2Word [32]byte
	copy(offset1Word[:], rec.Data[0:32])
	copy(offset2Word[:], rec.Data[32:64])

	offset1, ok := uint64FromABIWord(offset1Word)
	if !ok {
		return nil, newErr(KindInvalidAnnouncementLayout, "ephemeralPubKey", "malformed ABI offset")
	}
	offset2, ok := uint64FromABIWord(offset2Word)
	if !ok {
		return nil, newErr(KindInvalidAnnouncementLayout, "metadata", "malformed ABI offset")
	}

	ephBytes, err := abiDecodeBytesAt(rec.Data, offset1)
	if err != nil {
		return nil, err
	}
	if len(ephBytes) != 33 {
		return nil, newErr(KindInvalidAnnouncementLayout, "ephemeralPubKey", "must be exactly 33 bytes")
	}
	var ephCompressed [33]byte
	copy(ephCompressed[:], ephBytes)
	ephPub, err := DecompressPoint(ephCompressed)
	if err != nil {
		return nil, wrapErr(KindInvalidAnnouncementLayout, "ephemeralPubKey", "does not decompress to a valid point", err)
	}

	metadata, err := abiDecodeBytesAt(rec.Data, offset2)
	if err != nil {
		return nil, err
	}

	return &Announcement{
		SchemeID:          uint32(schemeU64),
		StealthEthAddress: stealthEthAddress,
		Caller:            caller,
		EphemeralPub:      ephPub,
		ViewTag:           ephCompressed[0],
		Metadata:          metadata,
		TxRef: TxRef{
			TxHash:      rec.TransactionHash,
			BlockNumber: rec.BlockNumber,
			LogIndex:    rec.LogIndex,
		},
	}, nil
}

// EncodeMetadataV1 packs the version-1 metadata sub-format: version byte,
// 20-byte token address (all-zero for the native asset), 33-byte
// compressed amount commitment, 32-byte blinding hash, then any extra
// data. Unset optional fields truncate the payload rather than being
// zero-filled, matching the "shorter payloads omit trailing fields" rule.
func EncodeMetadataV1(m AnnouncementMetadata) []byte {
	out := []byte{MetadataVersion1}
	if !m.HasToken {
		return out
	}
	out = append(out, m.TokenAddress[:]...)
	if !m.HasAmountCommitment {
		return out
	}
	out = append(out, m.AmountCommitment[:]...)
	if !m.HasBlindingHash {
		return out
	}
	out = append(out, m.BlindingHash[:]...)
	out = append(out, m.ExtraData...)
	return out
}

// ParseMetadataV1 decodes the metadata sub-format. An empty payload
// yields the zero-value AnnouncementMetadata with no fields set. A
// payload whose version byte is not 1 is accepted with only Version
// populated, per §6's "unknown version bytes MUST cause the record to be
// accepted with only the version field populated."
func ParseMetadataV1(payload []byte) AnnouncementMetadata {
	if len(payload) == 0 {
		return AnnouncementMetadata{}
	}

	m := AnnouncementMetadata{Version: payload[0]}
	if m.Version != MetadataVersion1 {
		return m
	}

	rest := payload[1:]
	if len(rest) < 20 {
		return m
	}
	m.HasToken = true
	copy(m.TokenAddress[:], rest[:20])
	rest = rest[20:]

	if len(rest) < 33 {
		return m
	}
	m.HasAmountCommitment = true
	copy(m.AmountCommitment[:], rest[:33])
	rest = rest[33:]

	if len(rest) < 32 {
		return m
	}
	m.HasBlindingHash = true
	copy(m.BlindingHash[:], rest[:32])
	rest = rest[32:]

	if len(rest) > 0 {
		m.ExtraData = append([]byte(nil), rest...)
	}
	return m
}

// FilterByScheme returns the subset of anns whose SchemeID matches.
func FilterByScheme(anns []Announcement, schemeID uint32) []Announcement {
	out := make([]Announcement, 0, len(anns))
	for _, a := range anns {
		if a.SchemeID == schemeID {
			out = append(out, a)
		}
	}
	return out
}

// FilterByViewTag returns the subset of anns whose ViewTag matches.
func FilterByViewTag(anns []Announcement, tag byte) []Announcement {
	out := make([]Announcement, 0, len(anns))
	for _, a := range anns {
		if a.ViewTag == tag {
			out = append(out, a)
		}
	}
	return out
}

// FilterByBlockRange returns the subset of anns whose TxRef.BlockNumber
// falls within [from, to] inclusive.
func FilterByBlockRange(anns []Announcement, from, to uint64) []Announcement {
	out := make([]Announcement, 0, len(anns))
	for _, a := range anns {
		if a.TxRef.BlockNumber >= from && a.TxRef.BlockNumber <= to {
			out = append(out, a)
		}
	}
	return out
}

// FilterByToken returns the subset of anns whose v1 metadata names
// tokenAddress. An announcement whose metadata does not carry a token
// field (ParseMetadataV1's HasToken is false) never matches.
func FilterByToken(anns []Announcement, tokenAddress [20]byte) []Announcement {
	out := make([]Announcement, 0, len(anns))
	for _, a := range anns {
		meta := ParseMetadataV1(a.Metadata)
		if meta.HasToken && meta.TokenAddress == tokenAddress {
			out = append(out, a)
		}
	}
	return out
}
